package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/nmarceau/chime/internal/core/domain"
)

// MessageRepository implements port.MessageRepository.
type MessageRepository struct {
	db *badgerdb.DB
}

func (r *MessageRepository) Put(ctx context.Context, msg domain.Message) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		return setJSON(txn, messagePrefix+msg.ID.String(), msg)
	})
}

func (r *MessageRepository) FindByID(ctx context.Context, id domain.MessageID) (domain.Message, error) {
	var msg domain.Message
	if err := getJSON(r.db, messagePrefix+id.String(), &msg); err != nil {
		return domain.Message{}, fmt.Errorf("find message %s: %w", id, mapNotFound(err))
	}
	return msg, nil
}

func (r *MessageRepository) UpdateStatus(ctx context.Context, id domain.MessageID, status domain.MessageStatus) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		var msg domain.Message
		if err := readJSON(txn, messagePrefix+id.String(), &msg); err != nil {
			return err
		}
		msg.Status = status
		return setJSON(txn, messagePrefix+id.String(), msg)
	})
}
