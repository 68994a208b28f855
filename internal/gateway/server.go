// Package gateway accepts downstream client websocket connections and
// translates their messages into relay subscriptions.
//
// The client protocol is minimal: each inbound text message's entire
// payload is one stock code to subscribe to. There is no client unsubscribe
// message; disconnecting is the only way a session drops its topics.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SunYerim/StockOfGalaxy/internal/registry"
)

// Relay is the upstream-facing surface the gateway drives.
type Relay interface {
	// Subscribe registers the session's interest in a topic and ensures
	// the upstream subscription exists.
	Subscribe(ctx context.Context, topic string, s registry.Session, force bool) error

	// SessionClosed removes a disconnected session from every topic.
	SessionClosed(s registry.Session)
}

// Config tunes the client-facing endpoint.
type Config struct {
	Path         string        // Websocket endpoint path
	WriteTimeout time.Duration // Per-send write deadline
	SendBuffer   int           // Per-session outbound queue capacity
}

// Server serves the client websocket endpoint.
type Server struct {
	cfg      Config
	relay    Relay
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the gateway server.
func NewServer(cfg Config, relay Relay, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:    cfg,
		relay:  relay,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWS)
	return mux
}

// greeting is the first message sent to a newly connected client.
type greeting struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, s.cfg.SendBuffer, s.cfg.WriteTimeout)
	go sess.writePump()

	logger := s.logger.With("session", sess.ID())
	logger.Info("client connected", "remote", conn.RemoteAddr())

	if data, err := json.Marshal(greeting{SessionID: sess.ID()}); err == nil {
		sess.Send(data)
	}

	s.readLoop(r.Context(), sess, conn, logger)
}

// readLoop consumes client messages until the connection drops, then tears
// the session down.
func (s *Server) readLoop(ctx context.Context, sess *session, conn *websocket.Conn, logger *slog.Logger) {
	defer func() {
		sess.close()
		conn.Close()
		s.relay.SessionClosed(sess)
		logger.Info("client disconnected")
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("client read error", "error", err)
			}
			return
		}

		topic := strings.TrimSpace(string(payload))
		if topic == "" {
			continue
		}

		logger.Info("subscribe request", "topic", topic)
		if err := s.relay.Subscribe(ctx, topic, sess, false); err != nil {
			// The client sees no error for upstream hiccups; operators
			// rely on logs.
			logger.Error("subscribe failed", "topic", topic, "error", err)
		}
	}
}
