package usage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// maxConflictRetries bounds the optimistic retry loop on write conflicts.
const maxConflictRetries = 1000

// BadgerStore keeps counters in an embedded Badger database. Increments run
// as read-increment-write transactions that Badger aborts with ErrConflict
// when another transaction touched the same key; those are retried.
type BadgerStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// OpenBadgerStore opens (or creates) a store under dir. Counters expire
// after retention; zero keeps them forever.
func OpenBadgerStore(dir string, retention time.Duration, logger *zap.Logger) (*BadgerStore, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	opts := badger.DefaultOptions(absPath)
	opts.Logger = nil

	return openBadger(opts, retention, logger)
}

// NewInMemoryBadgerStore opens a store that lives only in memory.
func NewInMemoryBadgerStore(logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openBadger(opts, 0, logger)
}

func openBadger(opts badger.Options, retention time.Duration, logger *zap.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	logger.Info("usage store opened", zap.String("backend", "badger"), zap.Bool("in_memory", opts.InMemory))
	return &BadgerStore{db: db, ttl: retention, logger: logger.Named("badger")}, nil
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func badgerKey(userID int, day string, kind Kind) []byte {
	return []byte(fmt.Sprintf("usage/%s/%d/%s", day, userID, kind))
}

func (s *BadgerStore) GetDailyUsage(ctx context.Context, userID int, day string) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return Counts{}, err
	}

	var counts Counts
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		counts, err = readCounts(txn, userID, day)
		return err
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to read usage: %w", err)
	}
	return counts, nil
}

func (s *BadgerStore) IncrementDailyUsage(ctx context.Context, userID int, day string, kind Kind) (Counts, error) {
	if !kind.Valid() {
		return Counts{}, ErrUnknownKind
	}

	key := badgerKey(userID, day, kind)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Counts{}, err
		}

		var counts Counts
		err := s.db.Update(func(txn *badger.Txn) error {
			current, err := readCounter(txn, key)
			if err != nil {
				return err
			}

			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, current+1)
			entry := badger.NewEntry(key, buf)
			if s.ttl > 0 {
				entry = entry.WithTTL(s.ttl)
			}
			if err := txn.SetEntry(entry); err != nil {
				return err
			}

			counts, err = readCounts(txn, userID, day)
			return err
		})
		if errors.Is(err, badger.ErrConflict) {
			s.logger.Debug("usage increment conflict, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Counts{}, fmt.Errorf("failed to increment usage: %w", err)
		}
		return counts, nil
	}

	return Counts{}, fmt.Errorf("failed to increment usage: %w", badger.ErrConflict)
}

func readCounts(txn *badger.Txn, userID int, day string) (Counts, error) {
	scans, err := readCounter(txn, badgerKey(userID, day, KindReceiptScans))
	if err != nil {
		return Counts{}, err
	}
	subs, err := readCounter(txn, badgerKey(userID, day, KindSubstitutions))
	if err != nil {
		return Counts{}, err
	}
	return Counts{ReceiptScans: int(scans), Substitutions: int(subs)}, nil
}

func readCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var n uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt counter %q", key)
		}
		n = binary.BigEndian.Uint64(val)
		return nil
	})
	return n, err
}
