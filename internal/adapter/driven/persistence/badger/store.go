package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/nmarceau/chime/internal/core/domain"
)

const (
	userPrefix     = "user:"
	usernamePrefix = "uname:"
	callPrefix     = "call:"
	messagePrefix  = "msg:"
)

// Store is the embedded persistence collaborator: users with their
// contact lists, call session history and messages, all JSON values in
// badger. Repositories hang off it via Users/CallSessions/Messages.
type Store struct {
	db *badgerdb.DB
}

func Open(path string) (*Store, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory backs the store with memory only, used in tests.
func OpenInMemory() (*Store, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

func (s *Store) CallSessions() *CallSessionRepository {
	return &CallSessionRepository{db: s.db}
}

func (s *Store) Messages() *MessageRepository {
	return &MessageRepository{db: s.db}
}

// Seed creates one user per username with all of them as mutual contacts,
// skipping usernames that already exist. Returns the users now present.
func (s *Store) Seed(ctx context.Context, usernames []string) ([]domain.User, error) {
	users := s.Users()
	seeded := make([]domain.User, 0, len(usernames))
	for _, name := range usernames {
		existing, err := users.FindByUsername(ctx, name)
		if err == nil {
			seeded = append(seeded, existing)
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		seeded = append(seeded, domain.User{
			ID:       domain.NewUserID(),
			Username: name,
			Status:   domain.StatusOffline,
		})
	}

	for i := range seeded {
		contacts := make([]domain.UserID, 0, len(seeded)-1)
		for j := range seeded {
			if i != j {
				contacts = append(contacts, seeded[j].ID)
			}
		}
		seeded[i].Contacts = contacts
		if err := users.Put(ctx, seeded[i]); err != nil {
			return nil, err
		}
	}
	return seeded, nil
}

func getJSON(db *badgerdb.DB, key string, out any) error {
	return db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func setJSON(txn *badgerdb.Txn, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), raw)
}

func readJSON(txn *badgerdb.Txn, key string, out any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return mapNotFound(err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func mapNotFound(err error) error {
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	return err
}
