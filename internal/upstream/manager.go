package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/SunYerim/StockOfGalaxy/internal/approval"
	"github.com/SunYerim/StockOfGalaxy/internal/model"
	"github.com/SunYerim/StockOfGalaxy/internal/protocol"
	"github.com/SunYerim/StockOfGalaxy/internal/registry"
)

// Dispatcher receives parsed quotes and heartbeat payloads for fan-out.
type Dispatcher interface {
	// Dispatch fans a quote out to the topic's subscribers.
	Dispatch(rec model.QuoteRecord)

	// Broadcast forwards a raw payload to every open session holding any
	// subscription.
	Broadcast(payload []byte)
}

// Manager owns the single upstream connection and its state machine:
// Disconnected → Connecting → Connected → (on fault) Reauthenticating →
// Connecting. It connects lazily on the first subscribe, replays the
// approval credential in each subscribe frame, and tears the socket down
// when the last client session disconnects.
type Manager struct {
	cfg        ManagerConfig
	creds      *approval.Cache
	registry   *registry.Registry
	dispatcher Dispatcher
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// connMu serializes connect, reconnect, and teardown: at most one
	// attempt is in flight, so concurrent callers never open duplicate
	// sockets. The client reference and credential are only mutated while
	// holding it.
	connMu      sync.Mutex
	client      Client
	approvalKey string

	state atomic.Int32
}

// NewManager creates a connection manager. Nothing is dialed until the
// first subscribe.
func NewManager(cfg ManagerConfig, creds *approval.Cache, reg *registry.Registry, dispatcher Dispatcher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:        cfg,
		creds:      creds,
		registry:   reg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start binds the manager to its lifetime context. The upstream socket is
// opened lazily by the first subscribe.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.logger.Info("upstream manager started", "url", m.cfg.Client.URL)
	return nil
}

// Stop closes the upstream connection and waits for the read loop.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}

	m.connMu.Lock()
	m.closeClientLocked()
	m.setState(StateDisconnected)
	m.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("upstream manager stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("upstream manager stop timed out")
		return ctx.Err()
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Subscribe records the session's interest in the topic and, when the
// registry reports a new membership (or force is set), ensures the upstream
// connection is up and sends the subscribe request.
func (m *Manager) Subscribe(ctx context.Context, topic string, s registry.Session, force bool) error {
	if !m.registry.Subscribe(topic, s, force) {
		m.logger.Debug("session already subscribed", "topic", topic, "session", s.ID())
		return nil
	}

	key, err := m.ensureConnected(ctx)
	if err != nil {
		m.rollbackSubscribe(topic, s, force)
		return err
	}

	if err := m.sendSubscribe(key, topic); err != nil {
		m.rollbackSubscribe(topic, s, force)
		return err
	}
	return nil
}

// rollbackSubscribe undoes a membership added by a subscribe whose upstream
// request failed. Left in place, the dead membership would make the client's
// retry of the same topic a silent no-op. Forced subscribes re-send for
// memberships that already existed, so those are kept.
func (m *Manager) rollbackSubscribe(topic string, s registry.Session, force bool) {
	if force {
		return
	}
	m.registry.Remove(topic, s)
}

// SessionClosed removes the session from every topic it held. When no
// sessions remain the upstream socket is closed and the manager returns to
// Disconnected.
func (m *Manager) SessionClosed(s registry.Session) {
	emptied := m.registry.Unsubscribe(s)
	if len(emptied) > 0 {
		m.logger.Info("topics lost their last subscriber", "topics", emptied)
	}

	if m.registry.SessionCount() == 0 {
		m.connMu.Lock()
		m.closeClientLocked()
		m.setState(StateDisconnected)
		m.connMu.Unlock()
		m.logger.Info("last session disconnected, upstream closed")
	}
}

// ensureConnected opens the upstream socket if needed and returns the
// approval credential in effect for it.
func (m *Manager) ensureConnected(ctx context.Context) (string, error) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.client != nil && m.client.IsConnected() {
		return m.approvalKey, nil
	}

	return m.connectLocked(ctx)
}

// connectLocked dials the provider with a credential from the cache.
// Callers hold connMu.
func (m *Manager) connectLocked(ctx context.Context) (string, error) {
	m.setState(StateConnecting)

	key, err := m.creds.Get(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		return "", err
	}

	cli := NewClient(m.cfg.Client, m.logger)
	if err := cli.Connect(ctx); err != nil {
		m.setState(StateDisconnected)
		return "", fmt.Errorf("dial upstream: %w", err)
	}

	m.client = cli
	m.approvalKey = key
	m.setState(StateConnected)

	m.wg.Add(1)
	go m.runLoop(cli)

	m.logger.Info("upstream connected")
	return key, nil
}

// closeClientLocked closes and clears the current client. Closing an
// already-closed client is a no-op. Callers hold connMu.
func (m *Manager) closeClientLocked() {
	if m.client != nil {
		m.client.Close()
		m.client = nil
		m.approvalKey = ""
	}
}

func (m *Manager) currentClient() Client {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.client
}

// sendSubscribe builds and sends one upstream subscribe frame.
func (m *Manager) sendSubscribe(key, topic string) error {
	frame, err := protocol.SubscribeFrame(key, topic)
	if err != nil {
		return err
	}

	cli := m.currentClient()
	if cli == nil {
		return ErrNotConnected
	}
	if err := cli.Send(frame); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	m.logger.Info("sent subscribe request", "topic", topic)
	return nil
}

// runLoop is the single reader for one connection: frames are processed
// strictly in arrival order, never concurrently with each other.
func (m *Manager) runLoop(cli Client) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case err := <-cli.Errors():
			m.logger.Warn("upstream connection error", "error", err)
			m.handleDisconnect(cli)
			return

		case msg, ok := <-cli.Messages():
			if !ok {
				return
			}
			m.handleFrame(msg)

			// A rejection handler may have replaced the connection; the
			// replacement has its own reader.
			if m.currentClient() != cli {
				return
			}
		}
	}
}

// handleDisconnect reacts to an ungraceful closure: the connection object
// is destroyed and the manager waits for the next subscribe to redial.
func (m *Manager) handleDisconnect(cli Client) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	if m.client != cli {
		return
	}
	m.closeClientLocked()
	m.setState(StateDisconnected)
}

// handleFrame routes one inbound payload.
func (m *Manager) handleFrame(payload []byte) {
	switch protocol.Classify(payload) {
	case protocol.KindControl:
		m.handleControl(payload)

	default:
		rec, err := protocol.ParseQuote(payload)
		if err != nil {
			m.logger.Warn("dropping malformed data frame", "error", err)
			return
		}
		m.dispatcher.Dispatch(rec)
	}
}

// handleControl applies the control-handling rules in priority order:
// heartbeat, already-subscribed, subscribe-ok, anything else is a rejected
// credential.
func (m *Manager) handleControl(payload []byte) {
	msg, err := protocol.ParseControl(payload)
	if err != nil {
		m.logger.Warn("undecodable control message", "error", err)
		return
	}

	switch msg.Kind() {
	case protocol.ControlHeartbeat:
		m.logger.Debug("heartbeat received")
		// Heartbeats are broadcast to every subscriber, not per-topic.
		m.dispatcher.Broadcast(payload)

	case protocol.ControlAlreadySubscribed:
		m.logger.Warn("upstream reports already subscribed",
			"code", msg.MsgCode,
			"topic", msg.TrKey,
		)

	case protocol.ControlSubscribeOK:
		if msg.MsgText == protocol.MsgTextSubscribeOK {
			m.logger.Info("subscribe acknowledged", "topic", msg.TrKey)
		} else {
			m.logger.Info("upstream ok", "code", msg.MsgCode, "msg", msg.MsgText)
		}

	case protocol.ControlRejected:
		m.logger.Warn("upstream rejected request, treating credential as invalid",
			"code", msg.MsgCode,
			"msg", msg.MsgText,
		)
		if err := m.reconnectAndResubscribeAll(m.ctx); err != nil {
			m.logger.Error("reconnect after rejection failed", "error", err)
		}
	}
}

// reconnectAndResubscribeAll forces a credential refresh, replaces the
// upstream connection, and resends one forced subscribe request per
// distinct topic from a registry snapshot. A failed refresh is fatal to
// this attempt: the manager stays Disconnected until the next trigger.
func (m *Manager) reconnectAndResubscribeAll(ctx context.Context) error {
	m.connMu.Lock()

	m.setState(StateReauthenticating)
	key, err := m.creds.ForceRefresh(ctx)
	if err != nil {
		m.closeClientLocked()
		m.setState(StateDisconnected)
		m.connMu.Unlock()
		return fmt.Errorf("refresh credential: %w", err)
	}

	m.closeClientLocked()
	m.setState(StateConnecting)

	cli := NewClient(m.cfg.Client, m.logger)
	if err := cli.Connect(ctx); err != nil {
		m.setState(StateDisconnected)
		m.connMu.Unlock()
		return fmt.Errorf("redial upstream: %w", err)
	}

	m.client = cli
	m.approvalKey = key
	m.setState(StateConnected)

	m.wg.Add(1)
	go m.runLoop(cli)
	m.connMu.Unlock()

	// Explicit snapshot, one forced resubscribe per distinct topic.
	topics := m.registry.AllTopics()
	failed := m.resubscribeAll(key, topics)
	if failed > 0 {
		m.logger.Warn("reconnected with partial resubscribe",
			"topics", len(topics),
			"failed", failed,
		)
	} else {
		m.logger.Info("reconnected and resubscribed", "topics", len(topics))
	}
	return nil
}

// resubscribeAll sends one forced subscribe per topic and reports how many
// sends failed.
func (m *Manager) resubscribeAll(key string, topics []string) int {
	failed := 0
	for _, topic := range topics {
		if err := m.sendSubscribe(key, topic); err != nil {
			m.logger.Error("resubscribe failed", "topic", topic, "error", err)
			failed++
		}
	}
	return failed
}
