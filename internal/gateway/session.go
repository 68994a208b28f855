package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrSendBufferFull indicates a session's outbound queue is full. Slow
// clients fail their own sends; they never stall fan-out to others.
var ErrSendBufferFull = errors.New("session send buffer full")

// errSessionClosed is returned by Send after the session has shut down.
var errSessionClosed = errors.New("session closed")

// session is one downstream client connection. It satisfies
// registry.Session; the registry references it but never owns its
// lifecycle.
type session struct {
	id           string
	conn         *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func newSession(conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration) *session {
	return &session{
		id:           uuid.NewString(),
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
	}
}

// ID returns the session identifier used in logs and the greeting message.
func (s *session) ID() string { return s.id }

// IsOpen reports whether the session still accepts sends.
func (s *session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Send enqueues one message for the write pump. A full buffer fails this
// session's send without blocking the caller.
func (s *session) Send(data []byte) error {
	// The lock covers the enqueue so close cannot race the send; the
	// enqueue itself never blocks.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSessionClosed
	}

	select {
	case s.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close marks the session closed and stops the write pump. Idempotent.
func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// writePump drains the send queue onto the websocket. Exits when the
// session closes or a write fails; the connection is closed either way.
func (s *session) writePump() {
	defer s.conn.Close()

	for data := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	s.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}
