package upstream

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// ClientConfig configures one websocket connection to the provider.
type ClientConfig struct {
	URL              string        // Real-time quote websocket URL
	HandshakeTimeout time.Duration // Dial handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // Keepalive ping cadence
	PingTimeout      time.Duration // Max silence before the connection is considered stale
	BufferSize       int           // Inbound message channel capacity
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      120 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the connection manager.
type ManagerConfig struct {
	Client ClientConfig
}

// State is the connection manager's lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReauthenticating
)

// String returns the state name for logging and health reporting.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReauthenticating:
		return "reauthenticating"
	default:
		return "disconnected"
	}
}
