// Package registry tracks which client sessions are subscribed to which
// stock codes.
//
// The registry owns membership only, never session lifecycle: sessions are
// created and closed by the gateway and merely referenced here. All
// operations, including the resubscribe-all snapshot, serialize on one
// registry-wide mutex so concurrent subscribe/unsubscribe/prune calls cannot
// lose updates.
package registry

import "sync"

// Session is a handle to one downstream client connection. Identity is the
// handle itself (sessions are map keys), not the ID string.
type Session interface {
	// ID returns a stable identifier for logging.
	ID() string

	// IsOpen reports whether the connection can still accept sends.
	IsOpen() bool

	// Send delivers one serialized message to the client.
	Send(data []byte) error
}

// Registry maintains two mutually consistent views of subscription
// membership: topic → sessions and session → topics. After every operation,
// a session is in topics[t] exactly when t is in sessions[session].
type Registry struct {
	mu       sync.Mutex
	topics   map[string]map[Session]struct{}
	sessions map[Session]map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		topics:   make(map[string]map[Session]struct{}),
		sessions: make(map[Session]map[string]struct{}),
	}
}

// Subscribe records the session's interest in the topic and reports whether
// an upstream subscribe request must be sent: true unless the membership
// already existed and force is unset. force is used during
// resubscribe-after-reconnect, where the upstream request must be re-sent
// even though local membership is unchanged.
func (r *Registry) Subscribe(topic string, s Session, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.topics[topic]
	if !ok {
		subs = make(map[Session]struct{})
		r.topics[topic] = subs
	}

	if _, exists := subs[s]; exists && !force {
		return false
	}
	subs[s] = struct{}{}

	held, ok := r.sessions[s]
	if !ok {
		held = make(map[string]struct{})
		r.sessions[s] = held
	}
	held[topic] = struct{}{}

	return true
}

// Unsubscribe removes the session from every topic it held and returns the
// topics that became empty as a result. No upstream unsubscribe is sent for
// emptied topics; the quote stream is shared infrastructure.
func (r *Registry) Unsubscribe(s Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	held, ok := r.sessions[s]
	if !ok {
		return nil
	}
	delete(r.sessions, s)

	var emptied []string
	for topic := range held {
		r.removeFromTopicLocked(topic, s, &emptied)
	}
	return emptied
}

// Remove drops one topic membership from both views, deleting empty map
// entries on either side. Used to undo a subscribe whose upstream request
// failed, so a retry of the same topic is not treated as a duplicate.
func (r *Registry) Remove(topic string, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneSessionLocked(topic, s)
}

// TopicsFor returns a copy of the topics the session currently holds.
func (r *Registry) TopicsFor(s Session) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	held := r.sessions[s]
	topics := make([]string, 0, len(held))
	for topic := range held {
		topics = append(topics, topic)
	}
	return topics
}

// SessionsFor returns a copy of the sessions subscribed to the topic.
func (r *Registry) SessionsFor(topic string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.topics[topic]
	sessions := make([]Session, 0, len(subs))
	for s := range subs {
		sessions = append(sessions, s)
	}
	return sessions
}

// AllTopics returns a snapshot of every distinct topic with at least one
// subscriber. Drives resubscribe-all after a reconnect; the snapshot is
// taken in one critical section so no concurrent mutation can tear it.
func (r *Registry) AllTopics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := make([]string, 0, len(r.topics))
	for topic := range r.topics {
		topics = append(topics, topic)
	}
	return topics
}

// SessionCount returns the number of sessions holding at least one topic.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Collect prunes closed sessions from the topic and returns a snapshot of
// the remaining open ones. Pruning updates both views and removes the topic
// entry entirely when it empties. The caller sends to the returned sessions
// outside the registry lock.
func (r *Registry) Collect(topic string) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.topics[topic]
	open := make([]Session, 0, len(subs))
	for s := range subs {
		if !s.IsOpen() {
			r.pruneSessionLocked(topic, s)
			continue
		}
		open = append(open, s)
	}
	return open
}

// OpenSessions prunes closed sessions everywhere and returns each remaining
// open session once, regardless of how many topics it holds. Used for
// heartbeat broadcast.
func (r *Registry) OpenSessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	open := make([]Session, 0, len(r.sessions))
	for s, held := range r.sessions {
		if !s.IsOpen() {
			for topic := range held {
				r.pruneSessionLocked(topic, s)
			}
			continue
		}
		open = append(open, s)
	}
	return open
}

// pruneSessionLocked removes one membership from both views, dropping empty
// map entries on either side.
func (r *Registry) pruneSessionLocked(topic string, s Session) {
	var emptied []string
	r.removeFromTopicLocked(topic, s, &emptied)

	if held, ok := r.sessions[s]; ok {
		delete(held, topic)
		if len(held) == 0 {
			delete(r.sessions, s)
		}
	}
}

func (r *Registry) removeFromTopicLocked(topic string, s Session, emptied *[]string) {
	subs, ok := r.topics[topic]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(r.topics, topic)
		*emptied = append(*emptied, topic)
	}
}
