package ledger

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mef-lab/coagula/internal/gate"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteBackend persists chain records in a SQLite database. WAL mode
// allows verification reads to proceed concurrently with appends; the
// connection pool is pinned to one connection because SQLite supports a
// single writer.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite creates or opens the ledger database at path. Pragmas and
// schema are applied on every open; the call is idempotent.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect ledger database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Append inserts the record at the next offset. The insert runs in a
// transaction keyed to the current MAX(offset), so a concurrent writer
// racing for the same offset fails the primary key instead of forking
// the chain.
func (s *SQLiteBackend) Append(data []byte) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRow("SELECT COALESCE(MAX(offset)+1, 0) FROM blocks").Scan(&next); err != nil {
		return 0, fmt.Errorf("next offset: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO blocks (offset, data) VALUES (?, ?)", next, data); err != nil {
		return 0, fmt.Errorf("insert block at offset %d: %w", next, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append: %w", err)
	}
	return next, nil
}

// Read returns the record at offset.
func (s *SQLiteBackend) Read(offset int64) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM blocks WHERE offset = ?", offset).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &LedgerError{Code: ErrCodeNotFound, Op: "sqlite read", Index: offset}
	}
	if err != nil {
		return nil, fmt.Errorf("read block at offset %d: %w", offset, err)
	}
	return data, nil
}

// Stats returns the record count and total payload bytes.
func (s *SQLiteBackend) Stats() (int64, int64, error) {
	var count, bytes int64
	err := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(data)), 0) FROM blocks").Scan(&count, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("ledger stats: %w", err)
	}
	return count, bytes, nil
}

// Flush is a no-op: each Append commits its own transaction, and WAL
// with synchronous=NORMAL is the chosen durability point.
func (s *SQLiteBackend) Flush() error { return nil }

// Close closes the database.
func (s *SQLiteBackend) Close() error { return s.db.Close() }

// EventSink returns a gate sink writing the audit trail into the same
// database. Sink failures are logged, never propagated into decisions.
func (s *SQLiteBackend) EventSink(logger *slog.Logger) *SQLiteEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteEventSink{db: s.db, logger: logger}
}

// SQLiteEventSink persists gate events to the gate_events table.
type SQLiteEventSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// Emit writes one event row. Implements gate.Sink.
func (s *SQLiteEventSink) Emit(ev gate.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("encode gate event", "seq", ev.Seq, "error", err)
		return
	}

	commit := 0
	if ev.Decision.Commit {
		commit = 1
	}

	_, err = s.db.Exec(
		"INSERT INTO gate_events (seq, timestamp, commit_, reason, payload) VALUES (?, ?, ?, ?, ?)",
		ev.Seq,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		commit,
		ev.Decision.Reason,
		payload,
	)
	if err != nil {
		s.logger.Error("persist gate event", "seq", ev.Seq, "error", err)
	}
}

// Events returns the persisted audit trail in emission order.
func (s *SQLiteBackend) Events() ([]gate.Event, error) {
	rows, err := s.db.Query("SELECT payload FROM gate_events ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query gate events: %w", err)
	}
	defer rows.Close()

	var events []gate.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan gate event: %w", err)
		}
		var ev gate.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode gate event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
