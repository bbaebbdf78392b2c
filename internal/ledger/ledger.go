package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mef-lab/coagula/internal/tic"
)

// Clock supplies block timestamps. Production uses the system clock;
// tests inject a fixed one for reproducible chains.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ChainStatistics summarizes the stored chain.
type ChainStatistics struct {
	TotalBlocks       int64 `json:"total_blocks"`
	TotalSizeEstimate int64 `json:"total_size_estimate"`
}

// Ledger owns the chain tail. Exactly one Ledger writes to a backend at a
// time (single-writer discipline); appends are serialized through the
// internal mutex. Reads of committed blocks and integrity verification
// may run concurrently with appends - they never observe a partially
// written block because the tail only advances after a successful
// persist.
type Ledger struct {
	mu      sync.Mutex
	backend Backend
	clock   Clock
	logger  *slog.Logger

	count int64
	tail  *Block
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// Open binds a Ledger to a backend, resuming from any existing records.
// The tail block of a non-empty chain is decoded and hash-verified, so a
// resumed ledger never links new blocks to a tampered tail (full chain
// verification is the caller's explicit choice via VerifyChainIntegrity).
func Open(backend Backend, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		backend: backend,
		clock:   systemClock{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}

	count, _, err := backend.Stats()
	if err != nil {
		return nil, &LedgerError{Code: ErrCodeStorage, Op: "open: backend stats", Index: -1, Err: err}
	}
	l.count = count

	if count > 0 {
		data, err := backend.Read(count - 1)
		if err != nil {
			return nil, &LedgerError{Code: ErrCodeStorage, Op: "open: read tail", Index: count - 1, Err: err}
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, &LedgerError{Code: ErrCodeCorrupt, Op: "open: decode tail", Index: count - 1, Err: err}
		}
		if rec.Block.Index != count-1 {
			return nil, &LedgerError{
				Code:  ErrCodeCorrupt,
				Op:    "open: tail index mismatch",
				Index: count - 1,
				Err:   fmt.Errorf("stored index %d", rec.Block.Index),
			}
		}
		if !rec.Block.Verify() {
			return nil, &LedgerError{Code: ErrCodeCorrupt, Op: "open: tail hash mismatch", Index: count - 1}
		}
		tail := rec.Block
		l.tail = &tail
	}

	return l, nil
}

// AppendBlock assigns the next sequential index, links the new block to
// the current tail (or the genesis constant) and persists it atomically.
// On any storage failure no block becomes visible and the tail does not
// advance; retry policy belongs to the calling orchestrator.
func (l *Ledger) AppendBlock(crystal tic.TIC, snapshotHash string) (Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := l.count
	previous := GenesisPreviousHash
	if l.tail != nil {
		previous = l.tail.Hash
	}

	ts := l.clock.Now().UTC()
	digest := crystal.Digest()
	block := Block{
		Index:         index,
		Hash:          computeBlockHash(index, previous, ts, crystal.TICID, snapshotHash, digest),
		PreviousHash:  previous,
		Timestamp:     ts,
		TICID:         crystal.TICID,
		SnapshotHash:  snapshotHash,
		CrystalDigest: digest,
	}

	data, err := encodeRecord(storedRecord{Block: block, TIC: crystal})
	if err != nil {
		return Block{}, &LedgerError{Code: ErrCodeStorage, Op: "append: encode", Index: index, Err: err}
	}

	offset, err := l.backend.Append(data)
	if err != nil {
		return Block{}, &LedgerError{Code: ErrCodeStorage, Op: "append: persist", Index: index, Err: err}
	}
	if offset != index {
		return Block{}, &LedgerError{
			Code:  ErrCodeStorage,
			Op:    "append: offset mismatch",
			Index: index,
			Err:   fmt.Errorf("backend assigned offset %d", offset),
		}
	}
	if err := l.backend.Flush(); err != nil {
		return Block{}, &LedgerError{Code: ErrCodeStorage, Op: "append: flush", Index: index, Err: err}
	}

	l.count = index + 1
	l.tail = &block

	l.logger.Info("block appended",
		"index", block.Index,
		"hash", block.Hash,
		"tic_id", block.TICID)

	return block, nil
}

// GetBlock returns the block at the given index.
func (l *Ledger) GetBlock(index int64) (Block, error) {
	rec, err := l.readRecord(index, "get block")
	if err != nil {
		return Block{}, err
	}
	return rec.Block, nil
}

// GetCrystal returns the TIC persisted with the block at index.
func (l *Ledger) GetCrystal(index int64) (tic.TIC, error) {
	rec, err := l.readRecord(index, "get crystal")
	if err != nil {
		return tic.TIC{}, err
	}
	return rec.TIC, nil
}

// Tail returns the current tail block, if any.
func (l *Ledger) Tail() (Block, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tail == nil {
		return Block{}, false
	}
	return *l.tail, true
}

// VerifyChainIntegrity recomputes hashes forward from fromIndex and
// checks every previous-hash linkage, plus the stored crystal of every
// record against the digest its block hash binds. Any mismatch -
// including a record that fails to decode or a tampered crystal body -
// yields false. The chain is never auto-repaired; a false result is a
// critical operational signal.
//
// A read failure from the backend is returned as an error, distinct from
// an integrity violation.
func (l *Ledger) VerifyChainIntegrity(fromIndex int64) (bool, error) {
	l.mu.Lock()
	count := l.count
	l.mu.Unlock()

	if fromIndex < 0 || fromIndex > count {
		return false, &LedgerError{Code: ErrCodeNotFound, Op: "verify: from index", Index: fromIndex}
	}

	previous := GenesisPreviousHash
	if fromIndex > 0 {
		rec, err := l.readRecord(fromIndex-1, "verify: anchor")
		if err != nil {
			var le *LedgerError
			if errors.As(err, &le) && le.Code == ErrCodeCorrupt {
				return false, nil
			}
			return false, err
		}
		b := rec.Block
		previous = computeBlockHash(b.Index, b.PreviousHash, b.Timestamp, b.TICID, b.SnapshotHash, b.CrystalDigest)
	}

	for i := fromIndex; i < count; i++ {
		data, err := l.backend.Read(i)
		if err != nil {
			return false, &LedgerError{Code: ErrCodeStorage, Op: "verify: read", Index: i, Err: err}
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return false, nil // undecodable record is an integrity violation
		}
		b := rec.Block
		if b.Index != i || b.PreviousHash != previous || !b.Verify() {
			return false, nil
		}
		if rec.TIC.TICID != b.TICID || rec.TIC.Digest() != b.CrystalDigest || !rec.TIC.Verify() {
			return false, nil
		}
		previous = b.Hash
	}

	return true, nil
}

// GetChainStatistics returns the block count and stored size estimate.
func (l *Ledger) GetChainStatistics() (ChainStatistics, error) {
	count, bytes, err := l.backend.Stats()
	if err != nil {
		return ChainStatistics{}, &LedgerError{Code: ErrCodeStorage, Op: "statistics", Index: -1, Err: err}
	}
	return ChainStatistics{TotalBlocks: count, TotalSizeEstimate: bytes}, nil
}

func (l *Ledger) readRecord(index int64, op string) (storedRecord, error) {
	l.mu.Lock()
	count := l.count
	l.mu.Unlock()

	if index < 0 || index >= count {
		return storedRecord{}, &LedgerError{Code: ErrCodeNotFound, Op: op, Index: index}
	}

	data, err := l.backend.Read(index)
	if err != nil {
		if IsNotFound(err) {
			return storedRecord{}, &LedgerError{Code: ErrCodeNotFound, Op: op, Index: index, Err: err}
		}
		return storedRecord{}, &LedgerError{Code: ErrCodeStorage, Op: op, Index: index, Err: err}
	}

	rec, err := decodeRecord(data)
	if err != nil {
		return storedRecord{}, &LedgerError{Code: ErrCodeCorrupt, Op: op, Index: index, Err: err}
	}
	return rec, nil
}
