package service

import (
	"context"
	"testing"
	"time"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func presenceFixture(t *testing.T) (*Presence, *Calls, *fakeGateway, *fakeUsers, domain.User, domain.User, domain.User) {
	t.Helper()
	alice := domain.User{ID: "alice", Username: "alice"}
	bob := domain.User{ID: "bob", Username: "bob"}
	carol := domain.User{ID: "carol", Username: "carol"}
	alice, bob = mutualContacts(alice, bob)
	alice, carol = mutualContacts(alice, carol)

	users := newFakeUsers(alice, bob, carol)
	gateway := newFakeGateway()
	calls := NewCalls(gateway, users, &fakeCallRecords{}, time.Minute)
	presence := NewPresence(gateway, users, calls)
	return presence, calls, gateway, users, alice, bob, carol
}

func Test_HandleConnect_SnapshotContainsOnlyOnlineContacts(t *testing.T) {
	req := require.New(t)
	presence, _, gateway, _, alice, bob, _ := presenceFixture(t)

	// bob online, carol offline
	gateway.setOnline(alice.ID, true)
	gateway.setOnline(bob.ID, true)

	req.NoError(presence.HandleConnect(context.Background(), alice.ID))

	snapshot, ok := gateway.lastByName(alice.ID, domain.EventOnlineContacts)
	req.True(ok)
	req.Equal([]domain.UserID{bob.ID}, snapshot.Data.([]domain.UserID))
}

func Test_HandleConnect_NotifiesOnlineContacts(t *testing.T) {
	req := require.New(t)
	presence, _, gateway, users, alice, bob, carol := presenceFixture(t)

	gateway.setOnline(alice.ID, true)
	gateway.setOnline(bob.ID, true)

	req.NoError(presence.HandleConnect(context.Background(), alice.ID))

	req.Equal(1, gateway.countByName(bob.ID, domain.EventUserStatusChanged))
	req.Zero(gateway.countByName(carol.ID, domain.EventUserStatusChanged))

	change, _ := gateway.lastByName(bob.ID, domain.EventUserStatusChanged)
	payload := change.Data.(domain.StatusChangedPayload)
	req.Equal(alice.ID, payload.UserID)
	req.Equal(domain.StatusOnline, payload.Status)

	req.Len(users.updates, 1)
	req.Equal(domain.StatusOnline, users.updates[0].status)
}

func Test_HandleConnect_ContactLoadFailure(t *testing.T) {
	req := require.New(t)
	presence, _, gateway, users, alice, bob, _ := presenceFixture(t)
	gateway.setOnline(bob.ID, true)
	users.findErr = domain.ErrPersistence

	err := presence.HandleConnect(context.Background(), alice.ID)
	req.ErrorIs(err, domain.ErrPersistence)
	// No partial snapshot, no stray notifications.
	req.Empty(gateway.eventsFor(alice.ID))
	req.Empty(gateway.eventsFor(bob.ID))
}

func Test_HandleDisconnect_ExactlyOneOfflinePerContact(t *testing.T) {
	req := require.New(t)
	presence, _, gateway, users, alice, bob, carol := presenceFixture(t)

	gateway.setOnline(bob.ID, true)
	gateway.setOnline(carol.ID, true)
	gateway.setOnline(alice.ID, false)

	presence.HandleDisconnect(context.Background(), alice.ID)

	req.Equal(1, gateway.countByName(bob.ID, domain.EventUserStatusChanged))
	req.Equal(1, gateway.countByName(carol.ID, domain.EventUserStatusChanged))

	change, _ := gateway.lastByName(bob.ID, domain.EventUserStatusChanged)
	payload := change.Data.(domain.StatusChangedPayload)
	req.Equal(domain.StatusOffline, payload.Status)
	req.NotZero(payload.LastSeen)

	req.Len(users.updates, 1)
	req.Equal(domain.StatusOffline, users.updates[0].status)
}

func Test_HandleDisconnect_TerminatesOwnedCall(t *testing.T) {
	req := require.New(t)
	presence, calls, gateway, _, alice, bob, _ := presenceFixture(t)

	gateway.setOnline(alice.ID, true)
	gateway.setOnline(bob.ID, true)

	call, err := calls.Initiate(context.Background(), alice.ID, bob.ID, domain.MediaVideo)
	req.NoError(err)
	req.NoError(calls.Answer(context.Background(), call.ID, bob.ID))

	gateway.setOnline(alice.ID, false)
	presence.HandleDisconnect(context.Background(), alice.ID)

	// The call is gone before the handler returns.
	_, ok := calls.Lookup(call.ID)
	req.False(ok)

	ended, ok := gateway.lastByName(bob.ID, domain.EventCallEnded)
	req.True(ok)
	req.Equal(domain.ReasonUserHangup, ended.Data.(domain.CallEndedPayload).Reason)
}

func Test_HandleDisconnect_OtherSessionStillLive(t *testing.T) {
	req := require.New(t)
	presence, _, gateway, users, alice, bob, _ := presenceFixture(t)

	// Identity still routes (another tab); presence must not flip.
	gateway.setOnline(alice.ID, true)
	gateway.setOnline(bob.ID, true)

	presence.HandleDisconnect(context.Background(), alice.ID)

	req.Zero(gateway.countByName(bob.ID, domain.EventUserStatusChanged))
	req.Empty(users.updates)
}
