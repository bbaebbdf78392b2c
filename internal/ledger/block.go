// Package ledger implements the append-only hash chain that stores
// committed crystals.
//
// Blocks are self-describing records: each carries its own index, hash,
// previous hash and payload digests, so a chain is independently
// re-verifiable from the raw record sequence without auxiliary indices.
// The tail is the only shared mutable resource in the core; all appends
// are serialized through a single-writer mutex so index assignment and
// previous-hash linkage stay correct under concurrent derivations.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mef-lab/coagula/internal/canon"
	"github.com/mef-lab/coagula/internal/tic"
)

// GenesisPreviousHash is the fixed previous_hash of block 0.
const GenesisPreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Block is one link of the hash chain. Index is strictly sequential from
// 0; Hash covers every other field plus PreviousHash. Blocks are never
// mutated or removed after creation.
type Block struct {
	Index         int64     `json:"index"`
	Hash          string    `json:"hash"`
	PreviousHash  string    `json:"previous_hash"`
	Timestamp     time.Time `json:"timestamp"`
	TICID         string    `json:"tic_id"`
	SnapshotHash  string    `json:"snapshot_hash"`
	CrystalDigest string    `json:"crystal_digest"`
}

// computeBlockHash derives the block hash. The TIC and snapshot bodies
// enter through content digests: tic_id addresses the crystal,
// snapshot_hash binds the input, and crystal_digest binds every field of
// the persisted crystal record. The preimage stays fixed-size while a
// mutation of any stored payload byte invalidates the hash.
func computeBlockHash(index int64, previousHash string, ts time.Time, ticID, snapshotHash, crystalDigest string) string {
	return canon.HashWithDomain(canon.DomainBlock, canon.NewEncoder().
		Int("index", index).
		String("previous_hash", previousHash).
		Int("timestamp", ts.UnixNano()).
		String("tic_id", ticID).
		String("snapshot_hash", snapshotHash).
		String("crystal_digest", crystalDigest).
		Bytes())
}

// Verify recomputes the block hash and compares it to the stored one.
func (b Block) Verify() bool {
	return b.Hash == computeBlockHash(b.Index, b.PreviousHash, b.Timestamp, b.TICID, b.SnapshotHash, b.CrystalDigest)
}

// storedRecord is the persisted layout: the block plus the full crystal,
// so a chain dump is self-contained.
type storedRecord struct {
	Block Block   `json:"block"`
	TIC   tic.TIC `json:"tic"`
}

func encodeRecord(rec storedRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode block record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (storedRecord, error) {
	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode block record: %w", err)
	}
	return rec, nil
}
