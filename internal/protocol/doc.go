// Package protocol implements the KIS real-time wire protocol: telling
// control messages apart from data frames, decoding both, and building the
// outbound subscribe frame.
//
// The wire format carries no explicit frame-type tag. Control messages are
// JSON objects; data frames are |-delimited text whose last segment is a
// ^-delimited field list consumed by fixed ordinal position. Both contracts
// come from the upstream provider and must be preserved verbatim.
package protocol
