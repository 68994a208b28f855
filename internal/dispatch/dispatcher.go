// Package dispatch fans parsed quotes out to the downstream sessions
// subscribed to their topic.
package dispatch

import (
	"encoding/json"
	"log/slog"

	"github.com/SunYerim/StockOfGalaxy/internal/model"
	"github.com/SunYerim/StockOfGalaxy/internal/registry"
)

// Dispatcher delivers quotes and heartbeats to client sessions. Closed
// sessions found along the way are pruned from the registry; a send failure
// on one session never aborts sends to the others.
type Dispatcher struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a dispatcher over the given registry.
func New(reg *registry.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry: reg,
		logger:   logger,
	}
}

// Dispatch serializes the record once and sends it to every open session
// subscribed to its topic. Pruning happens under the registry lock; sends
// happen outside it, against the pruned snapshot.
func (d *Dispatcher) Dispatch(rec model.QuoteRecord) {
	sessions := d.registry.Collect(rec.StockCode)
	if len(sessions) == 0 {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		d.logger.Error("failed to serialize quote", "topic", rec.StockCode, "error", err)
		return
	}

	for _, s := range sessions {
		if err := s.Send(data); err != nil {
			d.logger.Warn("downstream send failed",
				"session", s.ID(),
				"topic", rec.StockCode,
				"error", err,
			)
		}
	}
}

// Broadcast forwards a raw payload (heartbeats) to every open session
// holding at least one subscription, each session once.
func (d *Dispatcher) Broadcast(payload []byte) {
	for _, s := range d.registry.OpenSessions() {
		if err := s.Send(payload); err != nil {
			d.logger.Warn("downstream broadcast failed", "session", s.ID(), "error", err)
		}
	}
}
