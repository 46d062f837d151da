package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/a7al3le-dotcom/chat7ob/contract"
)

const auditPrefix = "audit:"

// AuditRepository persists privileged actions (kick, delete-message,
// clear-chat) in BadgerDB. The key is "audit:{timestamp_padded}:{uuid}":
// 19-digit zero padding keeps keys chronologically sorted lexicographically,
// and the uuid disambiguates two actions landing on the same nanosecond.
type AuditRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewAuditRepository(db *badger.DB, log *slog.Logger) AuditRepository {
	return AuditRepository{db: db, log: log}
}

func (r AuditRepository) Store(entry contract.AuditEntry) error {
	key := fmt.Sprintf("%s%019d:%s", auditPrefix, entry.AtUnix, entry.ID)
	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// List returns the most recent entries, newest first, up to limit.
func (r AuditRepository) List(limit int) ([]contract.AuditEntry, error) {
	var entries []contract.AuditEntry
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration needs a seek key past every audit entry.
		seekKey := []byte(auditPrefix + "9999999999999999999:")
		prefix := []byte(auditPrefix)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var entry contract.AuditEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
