package protocol

import (
	"encoding/json"
	"fmt"
)

// Control message constants from the KIS wire contract.
const (
	TrIDHeartbeat  = "PINGPONG"
	TrIDStockQuote = "H0STCNT0" // Real-time quote subscription transaction

	MsgCodeSubscribeOK       = "OPSP0000"
	MsgCodeAlreadySubscribed = "OPSP0002"
	MsgTextSubscribeOK       = "SUBSCRIBE SUCCESS"
)

// ControlKind classifies a decoded control message.
type ControlKind int

const (
	// ControlHeartbeat is the provider's PINGPONG keepalive.
	ControlHeartbeat ControlKind = iota
	// ControlAlreadySubscribed acknowledges a duplicate subscribe request.
	ControlAlreadySubscribed
	// ControlSubscribeOK acknowledges a successful subscribe request.
	ControlSubscribeOK
	// ControlRejected is any other result code, treated as an invalid or
	// rejected credential.
	ControlRejected
)

// String returns the kind name for logging.
func (k ControlKind) String() string {
	switch k {
	case ControlHeartbeat:
		return "heartbeat"
	case ControlAlreadySubscribed:
		return "already_subscribed"
	case ControlSubscribeOK:
		return "subscribe_ok"
	default:
		return "rejected"
	}
}

// ControlMessage is a decoded upstream control message.
type ControlMessage struct {
	TrID    string // header.tr_id (heartbeat / transaction tag)
	TrKey   string // header.tr_key (topic, when present)
	MsgCode string // body.msg_cd (result code)
	MsgText string // body.msg1 (human-readable result text)
}

// Kind classifies the message per the control-handling priority order:
// heartbeat, already-subscribed, subscribe-ok, rejected.
func (m ControlMessage) Kind() ControlKind {
	switch {
	case m.TrID == TrIDHeartbeat:
		return ControlHeartbeat
	case m.MsgCode == MsgCodeAlreadySubscribed:
		return ControlAlreadySubscribed
	case m.MsgCode == MsgCodeSubscribeOK:
		return ControlSubscribeOK
	default:
		return ControlRejected
	}
}

// controlWire is the structured form of an upstream control message.
type controlWire struct {
	Header struct {
		TrID  string `json:"tr_id"`
		TrKey string `json:"tr_key"`
	} `json:"header"`
	Body struct {
		MsgCode string `json:"msg_cd"`
		MsgText string `json:"msg1"`
	} `json:"body"`
}

// ParseControl decodes a control payload into a typed ControlMessage.
func ParseControl(payload []byte) (ControlMessage, error) {
	var wire controlWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return ControlMessage{}, fmt.Errorf("decode control message: %w", err)
	}

	return ControlMessage{
		TrID:    wire.Header.TrID,
		TrKey:   wire.Header.TrKey,
		MsgCode: wire.Body.MsgCode,
		MsgText: wire.Body.MsgText,
	}, nil
}
