package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/nmarceau/chime/internal/core/domain"
	"github.com/rs/zerolog/log"
)

// UserRepository implements port.UserRepository.
type UserRepository struct {
	db *badgerdb.DB
}

func (r *UserRepository) Put(ctx context.Context, user domain.User) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		if err := setJSON(txn, userPrefix+user.ID.String(), user); err != nil {
			return err
		}
		return txn.Set([]byte(usernamePrefix+user.Username), []byte(user.ID))
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	var user domain.User
	if err := getJSON(r.db, userPrefix+id.String(), &user); err != nil {
		return domain.User{}, fmt.Errorf("find user %s: %w", id, mapNotFound(err))
	}
	return user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var id domain.UserID
	err := r.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(usernamePrefix + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = domain.UserID(val)
			return nil
		})
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("find user %q: %w", username, mapNotFound(err))
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindWithContacts(ctx context.Context, id domain.UserID) (domain.User, []domain.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, nil, err
	}

	contacts := make([]domain.User, 0, len(user.Contacts))
	for _, cid := range user.Contacts {
		contact, err := r.FindByID(ctx, cid)
		if err != nil {
			// A dangling contact reference is not fatal for presence.
			log.Warn().Err(err).Str("user_id", id.String()).Str("contact_id", cid.String()).Msg("Skipping unresolvable contact")
			continue
		}
		contacts = append(contacts, contact)
	}
	return user, contacts, nil
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id domain.UserID, status domain.UserStatus, lastSeen time.Time) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		var user domain.User
		if err := readJSON(txn, userPrefix+id.String(), &user); err != nil {
			return err
		}
		user.Status = status
		user.LastSeen = lastSeen
		return setJSON(txn, userPrefix+id.String(), user)
	})
}
