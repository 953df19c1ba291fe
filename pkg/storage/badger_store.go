package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/res-scraper/pkg/log"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

const refKeyPrefix = "ref:"

// BadgerLedger implements ResourceLedger on an in-memory BadgerDB.
// Nothing touches disk and nothing survives Close.
type BadgerLedger struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerLedger opens a fresh in-memory ledger
func NewBadgerLedger(logger *logrus.Entry) (*BadgerLedger, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: opening in-memory ledger: %w", utils.ErrDatabase, err)
	}
	logger.Debug("Crawl ledger opened (in-memory)")
	return &BadgerLedger{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate retries db.Update on transaction conflicts, which concurrent
// workers can trigger and which clear almost immediately.
func (s *BadgerLedger) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

func refKey(rawRef string) []byte {
	return []byte(refKeyPrefix + rawRef)
}

// MarkPending implements ResourceLedger
func (s *BadgerLedger) MarkPending(rawRef, absoluteURL string, category models.Category) (bool, error) {
	entryBytes, err := json.Marshal(&models.ResourceDBEntry{
		Status:      models.ResourceStatusPending,
		RawRef:      rawRef,
		URL:         absoluteURL,
		Category:    category.Label(),
		LastAttempt: time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("%w: encoding entry for '%s': %w", utils.ErrParsing, rawRef, err)
	}

	added := false
	key := refKey(rawRef)
	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errGet == nil {
			return nil
		}
		if !errors.Is(errGet, badger.ErrKeyNotFound) {
			return errGet
		}
		if errSet := txn.SetEntry(badger.NewEntry(key, entryBytes)); errSet != nil {
			return errSet
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: marking '%s' pending: %w", utils.ErrDatabase, rawRef, err)
	}
	return added, nil
}

// MarkSkipped implements ResourceLedger
func (s *BadgerLedger) MarkSkipped(rawRef string, cause error) error {
	entry := &models.ResourceDBEntry{
		Status:      models.ResourceStatusSkipped,
		RawRef:      rawRef,
		LastAttempt: time.Now(),
	}
	if cause != nil {
		entry.ErrorType = utils.CategorizeError(cause)
		entry.ErrorDetail = cause.Error()
	}
	return s.UpdateStatus(rawRef, entry)
}

// UpdateStatus implements ResourceLedger
func (s *BadgerLedger) UpdateStatus(rawRef string, entry *models.ResourceDBEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil entry for '%s'", utils.ErrDatabase, rawRef)
	}
	entryBytes, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encoding entry for '%s': %w", utils.ErrParsing, rawRef, err)
	}

	key := refKey(rawRef)
	err = s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("raw_ref", rawRef).Errorf("Ledger update failed: %v", err)
		return fmt.Errorf("%w: setting status for '%s': %w", utils.ErrDatabase, rawRef, err)
	}
	return nil
}

// Entries implements ResourceLedger. Badger iterates in key order, which
// gives a stable ordering by raw reference.
func (s *BadgerLedger) Entries() ([]models.ResourceDBEntry, error) {
	var entries []models.ResourceDBEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(refKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			errVal := item.Value(func(val []byte) error {
				var decoded models.ResourceDBEntry
				if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
					s.log.Warnf("Skipping undecodable ledger entry '%s': %v", string(item.Key()), errJSON)
					return nil
				}
				entries = append(entries, decoded)
				return nil
			})
			if errVal != nil {
				return errVal
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing entries: %w", utils.ErrDatabase, err)
	}
	return entries, nil
}

// StatusCounts implements ResourceLedger
func (s *BadgerLedger) StatusCounts() (map[models.ResourceStatus]int, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	counts := make(map[models.ResourceStatus]int)
	for _, e := range entries {
		counts[e.Status]++
	}
	return counts, nil
}

// Close implements ResourceLedger. Safe to call more than once.
func (s *BadgerLedger) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing crawl ledger: %v", err)
		return fmt.Errorf("%w: closing ledger: %w", utils.ErrDatabase, err)
	}
	s.log.Debug("Crawl ledger closed")
	return nil
}

var _ ResourceLedger = (*BadgerLedger)(nil)
