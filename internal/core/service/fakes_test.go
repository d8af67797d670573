package service

import (
	"context"
	"sync"
	"time"

	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/nmarceau/chime/internal/core/port"
)

type fakeGateway struct {
	mu     sync.Mutex
	online map[domain.UserID]bool
	events map[domain.UserID][]domain.Event
}

func newFakeGateway(online ...domain.UserID) *fakeGateway {
	g := &fakeGateway{
		online: make(map[domain.UserID]bool),
		events: make(map[domain.UserID][]domain.Event),
	}
	for _, id := range online {
		g.online[id] = true
	}
	return g
}

func (g *fakeGateway) Register(s port.Session)   { g.setOnline(s.UserID(), true) }
func (g *fakeGateway) Unregister(s port.Session) { g.setOnline(s.UserID(), false) }

func (g *fakeGateway) setOnline(id domain.UserID, online bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.online[id] = online
}

func (g *fakeGateway) IsOnline(id domain.UserID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.online[id]
}

func (g *fakeGateway) Emit(ctx context.Context, id domain.UserID, ev domain.Event) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events[id] = append(g.events[id], ev)
	return nil
}

func (g *fakeGateway) eventsFor(id domain.UserID) []domain.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Event, len(g.events[id]))
	copy(out, g.events[id])
	return out
}

func (g *fakeGateway) countByName(id domain.UserID, name string) int {
	n := 0
	for _, ev := range g.eventsFor(id) {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) lastByName(id domain.UserID, name string) (domain.Event, bool) {
	var found domain.Event
	ok := false
	for _, ev := range g.eventsFor(id) {
		if ev.Name == name {
			found = ev
			ok = true
		}
	}
	return found, ok
}

type fakeUsers struct {
	mu      sync.Mutex
	users   map[domain.UserID]domain.User
	findErr error
	updates []statusUpdate
}

type statusUpdate struct {
	id       domain.UserID
	status   domain.UserStatus
	lastSeen time.Time
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[domain.UserID]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	if f.findErr != nil {
		return domain.User{}, f.findErr
	}
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (f *fakeUsers) FindWithContacts(ctx context.Context, id domain.UserID) (domain.User, []domain.User, error) {
	u, err := f.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, nil, err
	}
	contacts := make([]domain.User, 0, len(u.Contacts))
	for _, cid := range u.Contacts {
		if c, ok := f.users[cid]; ok {
			contacts = append(contacts, c)
		}
	}
	return u, contacts, nil
}

func (f *fakeUsers) UpdateStatus(ctx context.Context, id domain.UserID, status domain.UserStatus, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{id: id, status: status, lastSeen: lastSeen})
	return nil
}

type recordUpdate struct {
	id       domain.CallID
	status   domain.CallStatus
	reason   domain.EndReason
	duration time.Duration
}

type fakeCallRecords struct {
	mu        sync.Mutex
	created   []domain.CallRecord
	updates   []recordUpdate
	createErr error
	updateErr error
}

func (f *fakeCallRecords) Create(ctx context.Context, rec domain.CallRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeCallRecords) UpdateStatus(ctx context.Context, id domain.CallID, status domain.CallStatus, reason domain.EndReason, duration time.Duration) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, recordUpdate{id: id, status: status, reason: reason, duration: duration})
	return nil
}

func (f *fakeCallRecords) lastUpdate() (recordUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return recordUpdate{}, false
	}
	return f.updates[len(f.updates)-1], true
}

type fakeMessages struct {
	mu        sync.Mutex
	messages  map[domain.MessageID]domain.Message
	findErr   error
	updateErr error
	updates   []domain.MessageID
}

func newFakeMessages(msgs ...domain.Message) *fakeMessages {
	f := &fakeMessages{messages: make(map[domain.MessageID]domain.Message)}
	for _, m := range msgs {
		f.messages[m.ID] = m
	}
	return f
}

func (f *fakeMessages) FindByID(ctx context.Context, id domain.MessageID) (domain.Message, error) {
	if f.findErr != nil {
		return domain.Message{}, f.findErr
	}
	m, ok := f.messages[id]
	if !ok {
		return domain.Message{}, domain.ErrNotFound
	}
	return m, nil
}

func (f *fakeMessages) UpdateStatus(ctx context.Context, id domain.MessageID, status domain.MessageStatus) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	f.messages[id] = m
	f.updates = append(f.updates, id)
	return nil
}

func mutualContacts(a, b domain.User) (domain.User, domain.User) {
	a.Contacts = append(a.Contacts, b.ID)
	b.Contacts = append(b.Contacts, a.ID)
	return a, b
}
