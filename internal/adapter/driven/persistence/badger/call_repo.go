package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/nmarceau/chime/internal/core/domain"
)

// CallSessionRepository implements port.CallSessionRepository.
type CallSessionRepository struct {
	db *badgerdb.DB
}

func (r *CallSessionRepository) Create(ctx context.Context, rec domain.CallRecord) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		return setJSON(txn, callPrefix+rec.ID.String(), rec)
	})
}

func (r *CallSessionRepository) UpdateStatus(ctx context.Context, id domain.CallID, status domain.CallStatus, reason domain.EndReason, duration time.Duration) error {
	return r.db.Update(func(txn *badgerdb.Txn) error {
		var rec domain.CallRecord
		if err := readJSON(txn, callPrefix+id.String(), &rec); err != nil {
			return err
		}
		rec.Status = status
		rec.EndReason = reason
		rec.DurationSecs = int(duration.Seconds())
		now := time.Now().UTC()
		if status == domain.CallAnswered {
			rec.AnsweredAt = now
		} else if status.Terminal() {
			rec.EndedAt = now
		}
		return setJSON(txn, callPrefix+id.String(), rec)
	})
}

func (r *CallSessionRepository) FindByID(ctx context.Context, id domain.CallID) (domain.CallRecord, error) {
	var rec domain.CallRecord
	if err := getJSON(r.db, callPrefix+id.String(), &rec); err != nil {
		return domain.CallRecord{}, fmt.Errorf("find call %s: %w", id, mapNotFound(err))
	}
	return rec, nil
}
