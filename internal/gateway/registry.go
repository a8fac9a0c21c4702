// Package gateway is the WebSocket boundary: it authenticates upgrades,
// tracks live connections per session, and fans session events out to
// them with per-recipient rendering.
package gateway

import (
	"sync"

	"github.com/rs/zerolog"

	"railquiz/internal/session"
)

// Registry tracks live connections grouped by session. It implements
// session.Broadcaster: the session loop calls Fanout with a render
// callback and the registry shapes each recipient's frame.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	logger      zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		connections: make(map[string]map[*Connection]struct{}),
		logger:      logger,
	}
}

// Fanout renders and queues one frame per live connection of the session.
// Frame order per connection follows call order, which preserves the
// session loop's event ordering.
func (reg *Registry) Fanout(sessionID string, render func(session.Recipient) ([]byte, bool)) {
	reg.mu.RLock()
	conns := make([]*Connection, 0, len(reg.connections[sessionID]))
	for c := range reg.connections[sessionID] {
		conns = append(conns, c)
	}
	reg.mu.RUnlock()

	for _, c := range conns {
		data, ok := render(c.recipient)
		if !ok {
			continue
		}
		if !c.enqueue(data) {
			// Slow consumer: drop the connection rather than stall the
			// session loop's ordering guarantee for everyone else.
			reg.logger.Warn().
				Str("connection_id", c.recipient.ConnectionID).
				Str("session_id", sessionID).
				Msg("send buffer full, closing connection")
			reg.remove(sessionID, c)
			c.closeNow()
		}
	}
}

func (reg *Registry) add(sessionID string, c *Connection) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.connections[sessionID] == nil {
		reg.connections[sessionID] = make(map[*Connection]struct{})
	}
	reg.connections[sessionID][c] = struct{}{}
}

func (reg *Registry) remove(sessionID string, c *Connection) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if conns, ok := reg.connections[sessionID]; ok {
		if _, live := conns[c]; live {
			delete(conns, c)
			if len(conns) == 0 {
				delete(reg.connections, sessionID)
			}
		}
	}
}

// Stats summarizes live connections for the stats endpoint.
func (reg *Registry) Stats() map[string]any {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	total := 0
	perSession := make(map[string]int, len(reg.connections))
	for sessionID, conns := range reg.connections {
		total += len(conns)
		perSession[sessionID] = len(conns)
	}
	return map[string]any{
		"total_connections":   total,
		"active_sessions":     len(reg.connections),
		"session_connections": perSession,
	}
}
