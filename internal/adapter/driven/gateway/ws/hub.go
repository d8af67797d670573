package ws

import (
	"context"
	"sync"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Hub implements port.Gateway. Sessions are grouped by identity so that
// one route addresses every live connection of a user. State is
// process-local and lost on restart; clients resynchronize on reconnect.
type Hub struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]map[port.Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[domain.UserID]map[port.Session]struct{}),
	}
}

func (h *Hub) Register(s port.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.sessions[s.UserID()]
	if !ok {
		group = make(map[port.Session]struct{})
		h.sessions[s.UserID()] = group
	}
	group[s] = struct{}{}
	log.Info().Str("user_id", s.UserID().String()).Int("sessions", len(group)).Msg("Session registered")
}

// Unregister is idempotent; removing an unknown session is a no-op.
func (h *Hub) Unregister(s port.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.sessions[s.UserID()]
	if !ok {
		return
	}
	if _, ok := group[s]; !ok {
		return
	}
	delete(group, s)
	if len(group) == 0 {
		delete(h.sessions, s.UserID())
	}
	log.Info().Str("user_id", s.UserID().String()).Int("sessions", len(group)).Msg("Session unregistered")
}

func (h *Hub) IsOnline(id domain.UserID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[id]) > 0
}

// Emit delivers the event to every live session of the identity. An
// offline identity is not an error; the event is simply not deliverable.
func (h *Hub) Emit(ctx context.Context, id domain.UserID, ev domain.Event) error {
	h.mu.RLock()
	targets := make([]port.Session, 0, len(h.sessions[id]))
	for s := range h.sessions[id] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.Send(ev); err != nil {
			log.Error().Err(err).Str("user_id", id.String()).Str("event", ev.Name).Msg("Error sending event, dropping session")
			s.Close()
			h.Unregister(s)
		}
	}
	return nil
}

// Shutdown closes every session, used on server stop.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, group := range h.sessions {
		for s := range group {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Str("user_id", id.String()).Msg("Error closing session")
			}
		}
		delete(h.sessions, id)
	}
}
