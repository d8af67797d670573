package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
	"github.com/rs/zerolog/log"
)

// Calls drives the per-call state machine: ringing -> answered/declined/
// missed/failed, answered -> ended. It owns the ActiveCall table and the
// ring timers, and is the sole authority for call admission.
type Calls struct {
	gateway     port.Gateway
	users       port.UserRepository
	records     port.CallSessionRepository
	ringTimeout time.Duration

	mu     sync.Mutex
	active map[domain.CallID]*callEntry
	byUser map[domain.UserID]domain.CallID
}

// Ring timer lives next to the entry so every terminal transition can
// disarm it with a single lookup.
type callEntry struct {
	call  domain.ActiveCall
	timer *time.Timer
}

func NewCalls(gateway port.Gateway, users port.UserRepository, records port.CallSessionRepository, ringTimeout time.Duration) *Calls {
	return &Calls{
		gateway:     gateway,
		users:       users,
		records:     records,
		ringTimeout: ringTimeout,
		active:      make(map[domain.CallID]*callEntry),
		byUser:      make(map[domain.UserID]domain.CallID),
	}
}

// Initiate admits a new call. Checks run in order: callee online, mutual
// contacts, neither party busy. The durable record is created before any
// event is emitted; if that write fails the call never existed.
func (s *Calls) Initiate(ctx context.Context, caller, callee domain.UserID, media domain.MediaType) (domain.ActiveCall, error) {
	if !s.gateway.IsOnline(callee) {
		return domain.ActiveCall{}, domain.ErrPeerOffline
	}

	callerRec, err := s.users.FindByID(ctx, caller)
	if err != nil {
		return domain.ActiveCall{}, fmt.Errorf("%w: load caller: %v", domain.ErrPersistence, err)
	}
	calleeRec, err := s.users.FindByID(ctx, callee)
	if err != nil {
		return domain.ActiveCall{}, fmt.Errorf("%w: load callee: %v", domain.ErrPersistence, err)
	}
	if !callerRec.HasContact(callee) || !calleeRec.HasContact(caller) {
		return domain.ActiveCall{}, domain.ErrNotAuthorized
	}

	call := domain.ActiveCall{
		ID:        domain.NewCallID(),
		Caller:    caller,
		Callee:    callee,
		Media:     media,
		Status:    domain.CallRinging,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if _, busy := s.byUser[caller]; busy {
		s.mu.Unlock()
		return domain.ActiveCall{}, domain.ErrAlreadyInCall
	}
	if _, busy := s.byUser[callee]; busy {
		s.mu.Unlock()
		return domain.ActiveCall{}, domain.ErrAlreadyInCall
	}
	entry := &callEntry{call: call}
	s.active[call.ID] = entry
	s.byUser[caller] = call.ID
	s.byUser[callee] = call.ID
	s.mu.Unlock()

	if err := s.records.Create(ctx, domain.NewCallRecord(call)); err != nil {
		s.mu.Lock()
		s.removeLocked(entry)
		s.mu.Unlock()
		return domain.ActiveCall{}, fmt.Errorf("%w: create call session: %v", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	// A disconnect may have torn the call down while the record was
	// being written; only a still-live entry gets a ring timer.
	if _, live := s.active[call.ID]; live {
		entry.timer = time.AfterFunc(s.ringTimeout, func() {
			s.ringTimeoutFired(call.ID)
		})
	}
	s.mu.Unlock()

	offer := domain.CallOfferPayload{CallID: call.ID, Caller: caller, Callee: callee, Media: media}
	s.emit(ctx, caller, domain.Event{Name: domain.EventCallInitiated, Data: offer})
	s.emit(ctx, callee, domain.Event{Name: domain.EventIncomingCall, Data: offer})

	log.Info().
		Str("call_id", call.ID.String()).
		Str("caller", caller.String()).
		Str("callee", callee.String()).
		Str("media", string(media)).
		Msg("Call initiated")
	return call, nil
}

// Answer moves a ringing call to answered. Racing against decline or the
// ring timer, whichever transition lands first wins; the loser sees NotFound.
func (s *Calls) Answer(ctx context.Context, callID domain.CallID, respondent domain.UserID) error {
	s.mu.Lock()
	entry, ok := s.active[callID]
	if !ok || entry.call.Status != domain.CallRinging || !entry.call.Involves(respondent) {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	entry.call.Status = domain.CallAnswered
	entry.call.AnsweredAt = time.Now().UTC()
	call := entry.call
	s.mu.Unlock()

	if err := s.records.UpdateStatus(ctx, callID, domain.CallAnswered, "", 0); err != nil {
		log.Error().Err(err).Str("call_id", callID.String()).Msg("Failed to persist answered status")
	}

	answered := domain.Event{
		Name: domain.EventCallAnswered,
		Data: domain.CallAnsweredPayload{CallID: callID, AnsweredBy: respondent},
	}
	s.emit(ctx, call.Caller, answered)
	s.emit(ctx, call.Callee, answered)
	return nil
}

// Decline rejects a ringing call. Only valid while the call is still
// ringing; a call already answered or torn down yields NotFound.
func (s *Calls) Decline(ctx context.Context, callID domain.CallID, respondent domain.UserID) error {
	s.mu.Lock()
	entry, ok := s.active[callID]
	if !ok || entry.call.Status != domain.CallRinging || !entry.call.Involves(respondent) {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	entry.call.Status = domain.CallDeclined
	entry.call.EndedAt = time.Now().UTC()
	s.removeLocked(entry)
	call := entry.call
	s.mu.Unlock()

	s.finish(ctx, call, domain.ReasonDeclined, respondent)
	return nil
}

// End terminates a call from either party. A second End on the same id is
// a no-op: the entry is already gone and nothing is emitted again.
func (s *Calls) End(ctx context.Context, callID domain.CallID, requester domain.UserID) error {
	s.mu.Lock()
	entry, ok := s.active[callID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if !entry.call.Involves(requester) {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	entry.call.Status = domain.CallEnded
	entry.call.EndedAt = time.Now().UTC()
	s.removeLocked(entry)
	call := entry.call
	s.mu.Unlock()

	s.finish(ctx, call, domain.ReasonUserHangup, requester)
	return nil
}

// TerminateFor tears down whatever call the identity is part of, used by
// disconnect cleanup.
func (s *Calls) TerminateFor(ctx context.Context, id domain.UserID) {
	s.mu.Lock()
	callID, ok := s.byUser[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.terminate(ctx, callID, domain.ReasonUserHangup)
}

// Lookup resolves a live call for signaling validation.
func (s *Calls) Lookup(callID domain.CallID) (domain.ActiveCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.active[callID]
	if !ok {
		return domain.ActiveCall{}, false
	}
	return entry.call, true
}

func (s *Calls) ringTimeoutFired(callID domain.CallID) {
	ctx := context.Background()
	s.mu.Lock()
	entry, ok := s.active[callID]
	// Status re-check guards against a timer that lost the race with an
	// answer or teardown between firing and acquiring the lock.
	if !ok || entry.call.Status != domain.CallRinging {
		s.mu.Unlock()
		return
	}
	entry.call.Status = domain.CallMissed
	entry.call.EndedAt = time.Now().UTC()
	s.removeLocked(entry)
	call := entry.call
	s.mu.Unlock()

	log.Info().Str("call_id", callID.String()).Msg("Ring timeout, call missed")
	s.finish(ctx, call, domain.ReasonMissed, "")
}

func (s *Calls) terminate(ctx context.Context, callID domain.CallID, reason domain.EndReason) {
	s.mu.Lock()
	entry, ok := s.active[callID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if entry.call.Status == domain.CallAnswered {
		entry.call.Status = domain.CallEnded
	} else {
		entry.call.Status = domain.CallFailed
	}
	entry.call.EndedAt = time.Now().UTC()
	s.removeLocked(entry)
	call := entry.call
	s.mu.Unlock()

	s.finish(ctx, call, reason, "")
}

// removeLocked clears the entry and disarms its timer. Callers hold mu.
func (s *Calls) removeLocked(entry *callEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
	}
	delete(s.active, entry.call.ID)
	delete(s.byUser, entry.call.Caller)
	delete(s.byUser, entry.call.Callee)
}

// finish persists the terminal state best-effort and notifies both
// parties. Emission proceeds regardless of the persistence outcome.
func (s *Calls) finish(ctx context.Context, call domain.ActiveCall, reason domain.EndReason, endedBy domain.UserID) {
	duration := call.Duration()
	if err := s.records.UpdateStatus(ctx, call.ID, call.Status, reason, duration); err != nil {
		log.Error().Err(err).Str("call_id", call.ID.String()).Msg("Failed to persist terminal call status")
	}

	ended := domain.Event{
		Name: domain.EventCallEnded,
		Data: domain.CallEndedPayload{
			CallID:       call.ID,
			Reason:       reason,
			EndedBy:      endedBy,
			DurationSecs: int(duration.Seconds()),
		},
	}
	s.emit(ctx, call.Caller, ended)
	s.emit(ctx, call.Callee, ended)

	log.Info().
		Str("call_id", call.ID.String()).
		Str("reason", string(reason)).
		Dur("duration", duration).
		Msg("Call ended")
}

func (s *Calls) emit(ctx context.Context, id domain.UserID, ev domain.Event) {
	if err := s.gateway.Emit(ctx, id, ev); err != nil {
		log.Error().Err(err).Str("user_id", id.String()).Str("event", ev.Name).Msg("Failed to emit call event")
	}
}
