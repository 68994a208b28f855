package protocol

import (
	"bytes"
	"encoding/json"
)

// Kind is the coarse classification of an inbound upstream payload.
type Kind int

const (
	// KindData is a delimited real-time quote frame.
	KindData Kind = iota
	// KindControl is a structured control message (heartbeat, ack, error).
	KindControl
)

// Classify decides whether an inbound payload is a control message or a
// data frame.
//
// This is a heuristic, not a protocol tag: a payload that parses as a JSON
// object is treated as control, anything else as data. The upstream provider
// sends no discriminator, so this mirrors how the wire actually behaves.
func Classify(payload []byte) Kind {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return KindData
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return KindData
	}
	return KindControl
}
