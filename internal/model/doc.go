// Package model defines shared data types for the real-time stock relay.
//
// Conventions:
//   - Quote fields: raw string tokens as sent by the KIS wire protocol;
//     no numeric conversion is performed beyond positional extraction
//   - JSON field names: fixed client-facing contract, do not rename
package model
