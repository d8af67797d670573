package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Presence reacts to session lifecycle: it broadcasts status flips to the
// affected contact set and hands the connecting user a snapshot of which
// contacts are online.
type Presence struct {
	gateway port.Gateway
	users   port.UserRepository
	calls   *Calls
}

func NewPresence(gateway port.Gateway, users port.UserRepository, calls *Calls) *Presence {
	return &Presence{gateway: gateway, users: users, calls: calls}
}

// HandleConnect runs after the session is registered. The snapshot is
// emitted only once the full contact list has been loaded; it is never
// streamed incrementally.
func (s *Presence) HandleConnect(ctx context.Context, id domain.UserID) error {
	_, contacts, err := s.users.FindWithContacts(ctx, id)
	if err != nil {
		return fmt.Errorf("load contacts for %s: %w", id, err)
	}

	if err := s.users.UpdateStatus(ctx, id, domain.StatusOnline, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", id.String()).Msg("Failed to persist online status")
	}

	online := lo.Filter(contacts, func(c domain.User, _ int) bool {
		return s.gateway.IsOnline(c.ID)
	})

	change := domain.Event{
		Name: domain.EventUserStatusChanged,
		Data: domain.StatusChangedPayload{UserID: id, Status: domain.StatusOnline},
	}
	for _, contact := range online {
		s.emit(ctx, contact.ID, change)
	}

	snapshot := domain.Event{
		Name: domain.EventOnlineContacts,
		Data: lo.Map(online, func(c domain.User, _ int) domain.UserID { return c.ID }),
	}
	s.emit(ctx, id, snapshot)

	log.Info().Str("user_id", id.String()).Int("online_contacts", len(online)).Msg("User connected")
	return nil
}

// HandleDisconnect runs after the last session of the identity is gone.
// Any call the identity is part of is torn down before this returns.
func (s *Presence) HandleDisconnect(ctx context.Context, id domain.UserID) {
	if s.gateway.IsOnline(id) {
		// Another session for the same identity is still live; the
		// route stays up and presence does not flip.
		return
	}

	s.calls.TerminateFor(ctx, id)

	lastSeen := time.Now().UTC()
	if err := s.users.UpdateStatus(ctx, id, domain.StatusOffline, lastSeen); err != nil {
		log.Warn().Err(err).Str("user_id", id.String()).Msg("Failed to persist offline status")
	}

	_, contacts, err := s.users.FindWithContacts(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Msg("Failed to load contacts on disconnect")
		return
	}

	change := domain.Event{
		Name: domain.EventUserStatusChanged,
		Data: domain.StatusChangedPayload{
			UserID:   id,
			Status:   domain.StatusOffline,
			LastSeen: lastSeen.Unix(),
		},
	}
	for _, contact := range contacts {
		if s.gateway.IsOnline(contact.ID) {
			s.emit(ctx, contact.ID, change)
		}
	}

	log.Info().Str("user_id", id.String()).Msg("User disconnected")
}

func (s *Presence) emit(ctx context.Context, id domain.UserID, ev domain.Event) {
	if err := s.gateway.Emit(ctx, id, ev); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Str("event", ev.Name).Msg("Failed to emit presence event")
	}
}
