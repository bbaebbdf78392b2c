package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Badger key layout: one entry per record plus a count key maintained in
// the same transaction, so Append is atomic and Stats is O(1).
const badgerCountKey = "meta/count"

func badgerBlockKey(offset int64) []byte {
	return []byte(fmt.Sprintf("block/%016x", offset))
}

// BadgerConfig configures a BadgerBackend.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful
	// for tests.
	InMemory bool

	// SyncWrites forces each write to disk before returning. On by
	// default for persistent databases.
	SyncWrites bool

	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns production defaults: persistent at path
// with synchronous writes.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

// InMemoryBadgerConfig returns a test configuration with no disk I/O.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerBackend persists chain records in an embedded BadgerDB. Suited
// to deployments that want low-latency appends without a SQL layer.
type BadgerBackend struct {
	db       *badger.DB
	inMemory bool
}

// OpenBadger opens (or creates) a badger-backed record store.
func OpenBadger(cfg BadgerConfig) (*BadgerBackend, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent badger backend")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &BadgerBackend{db: db, inMemory: cfg.InMemory}, nil
}

// Append writes the record and the advanced count in one transaction.
func (b *BadgerBackend) Append(data []byte) (int64, error) {
	var offset int64
	err := b.db.Update(func(txn *badger.Txn) error {
		count, err := readBadgerCount(txn)
		if err != nil {
			return err
		}
		offset = count

		if err := txn.Set(badgerBlockKey(offset), data); err != nil {
			return fmt.Errorf("set block at offset %d: %w", offset, err)
		}

		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(count+1))
		if err := txn.Set([]byte(badgerCountKey), buf[:]); err != nil {
			return fmt.Errorf("advance count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// Read returns the record at offset.
func (b *BadgerBackend) Read(offset int64) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerBlockKey(offset))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return &LedgerError{Code: ErrCodeNotFound, Op: "badger read", Index: offset}
		}
		if err != nil {
			return fmt.Errorf("read block at offset %d: %w", offset, err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Stats returns the record count and total payload bytes.
func (b *BadgerBackend) Stats() (int64, int64, error) {
	var count, bytes int64
	err := b.db.View(func(txn *badger.Txn) error {
		c, err := readBadgerCount(txn)
		if err != nil {
			return err
		}
		count = c

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("block/")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			bytes += it.Item().ValueSize()
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return count, bytes, nil
}

// Flush syncs badger's write-ahead state to disk. No-op for in-memory
// databases, where Sync is unsupported.
func (b *BadgerBackend) Flush() error {
	if b.inMemory {
		return nil
	}
	return b.db.Sync()
}

// Close closes the database.
func (b *BadgerBackend) Close() error { return b.db.Close() }

func readBadgerCount(txn *badger.Txn) (int64, error) {
	item, err := txn.Get([]byte(badgerCountKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	var count int64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("count value has %d bytes", len(val))
		}
		count = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return count, err
}
