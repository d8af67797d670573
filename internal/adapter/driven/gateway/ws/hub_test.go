package ws

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	userID  domain.UserID
	mu      sync.Mutex
	events  []domain.Event
	sendErr error
	closed  bool
}

func (s *stubSession) UserID() domain.UserID { return s.userID }

func (s *stubSession) Send(ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func Test_Register_MakesIdentityOnline(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	req.False(hub.IsOnline("alice"))

	hub.Register(&stubSession{userID: "alice"})
	req.True(hub.IsOnline("alice"))
	req.False(hub.IsOnline("bob"))
}

func Test_Emit_ReachesEverySessionOfIdentity(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	tab1 := &stubSession{userID: "alice"}
	tab2 := &stubSession{userID: "alice"}
	hub.Register(tab1)
	hub.Register(tab2)

	req.NoError(hub.Emit(context.Background(), "alice", domain.Event{Name: "ping"}))
	req.Len(tab1.events, 1)
	req.Len(tab2.events, 1)
}

func Test_Emit_OfflineIdentity_NoError(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	req.NoError(hub.Emit(context.Background(), "ghost", domain.Event{Name: "ping"}))
}

func Test_Unregister_LastSessionFlipsOffline(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	tab1 := &stubSession{userID: "alice"}
	tab2 := &stubSession{userID: "alice"}
	hub.Register(tab1)
	hub.Register(tab2)

	hub.Unregister(tab1)
	req.True(hub.IsOnline("alice"), "identity stays online while one session remains")

	hub.Unregister(tab2)
	req.False(hub.IsOnline("alice"))

	// Idempotent: removing again is a no-op.
	hub.Unregister(tab2)
	req.False(hub.IsOnline("alice"))
}

func Test_Emit_DropsFailingSession(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	broken := &stubSession{userID: "alice", sendErr: errors.New("write: broken pipe")}
	healthy := &stubSession{userID: "alice"}
	hub.Register(broken)
	hub.Register(healthy)

	req.NoError(hub.Emit(context.Background(), "alice", domain.Event{Name: "ping"}))

	req.True(broken.closed)
	req.True(hub.IsOnline("alice"), "healthy session must survive")
	req.Len(healthy.events, 1)
}

func Test_Shutdown_ClosesAllSessions(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	s1 := &stubSession{userID: "alice"}
	s2 := &stubSession{userID: "bob"}
	hub.Register(s1)
	hub.Register(s2)

	hub.Shutdown()

	req.True(s1.closed)
	req.True(s2.closed)
	req.False(hub.IsOnline("alice"))
	req.False(hub.IsOnline("bob"))
}
