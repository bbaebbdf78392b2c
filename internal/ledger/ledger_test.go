package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mef-lab/coagula/internal/coord"
	"github.com/mef-lab/coagula/internal/solve"
	"github.com/mef-lab/coagula/internal/tic"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func testClock() *fixedClock {
	return &fixedClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
}

func testCrystal(t *testing.T, n int) tic.TIC {
	t.Helper()
	fix := coord.Vector{0.1 * float64(n), -0.2, 0.3, 0.05, -0.15}
	info := solve.ConvergenceInfo{Converged: true, Iterations: 40 + n, FinalDelta: 1e-7}
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return tic.Crystallize(fix, fmt.Sprintf("seed-%d", n), fmt.Sprintf("snap-%d", n), info, now, 0)
}

func appendN(t *testing.T, l *Ledger, n int) []Block {
	t.Helper()
	blocks := make([]Block, 0, n)
	for i := 0; i < n; i++ {
		b, err := l.AppendBlock(testCrystal(t, i), fmt.Sprintf("snaphash-%d", i))
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	return blocks
}

func TestAppendLinksChain(t *testing.T) {
	l, err := Open(NewMemoryBackend(), WithClock(testClock()))
	require.NoError(t, err)

	blocks := appendN(t, l, 5)

	assert.Equal(t, GenesisPreviousHash, blocks[0].PreviousHash)
	for i, b := range blocks {
		assert.Equal(t, int64(i), b.Index, "indices are dense and sequential")
		assert.True(t, b.Verify(), "stored hash matches recomputation")
		if i > 0 {
			assert.Equal(t, blocks[i-1].Hash, b.PreviousHash)
		}
	}

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.VerifyChainIntegrity(3)
	require.NoError(t, err)
	assert.True(t, ok, "verification from a mid-chain index uses the anchor block")
}

func TestGetBlockAndCrystal(t *testing.T) {
	l, err := Open(NewMemoryBackend(), WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 3)

	got, err := l.GetBlock(1)
	require.NoError(t, err)
	assert.Equal(t, blocks[1], got)

	crystal, err := l.GetCrystal(1)
	require.NoError(t, err)
	assert.Equal(t, blocks[1].TICID, crystal.TICID)

	_, err = l.GetBlock(99)
	assert.True(t, IsNotFound(err))
	_, err = l.GetBlock(-1)
	assert.True(t, IsNotFound(err))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	appendN(t, l, 4)

	backend.Corrupt(2, []byte("not a block record"))

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.False(t, ok, "undecodable record fails verification")
}

func TestVerifyDetectsTamperedField(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 4)

	// Re-encode block 1 with a shifted timestamp but the original hash.
	crystal, err := l.GetCrystal(1)
	require.NoError(t, err)
	tampered := blocks[1]
	tampered.Timestamp = tampered.Timestamp.Add(time.Minute)
	data, err := encodeRecord(storedRecord{Block: tampered, TIC: crystal})
	require.NoError(t, err)
	backend.Corrupt(1, data)

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.False(t, ok, "hash recomputation exposes the edit")

	ok, err = l.VerifyChainIntegrity(2)
	require.NoError(t, err)
	assert.False(t, ok, "verification anchored past the edit still fails on linkage")
}

func TestVerifyDetectsCorruptedCrystal(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 3)

	// Re-encode record 1 with a mutated crystal body but the original,
	// still self-consistent block.
	crystal, err := l.GetCrystal(1)
	require.NoError(t, err)
	crystal.Fixpoint[0] += 42
	crystal.Invariants.Variance = 999
	data, err := encodeRecord(storedRecord{Block: blocks[1], TIC: crystal})
	require.NoError(t, err)
	backend.Corrupt(1, data)

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.False(t, ok, "corrupted stored payload must fail verification")

	ok, err = l.VerifyChainIntegrity(1)
	require.NoError(t, err)
	assert.False(t, ok, "the bound digest exposes the edit from any anchor")
}

func TestVerifyDetectsShiftedValidityWindow(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 2)

	// The validity window is outside the tic id and proof preimages;
	// only the crystal digest covers it.
	crystal, err := l.GetCrystal(0)
	require.NoError(t, err)
	crystal.ValidFrom = crystal.ValidFrom.Add(time.Hour)
	crystal.ValidUntil = crystal.ValidUntil.Add(time.Hour)
	data, err := encodeRecord(storedRecord{Block: blocks[0], TIC: crystal})
	require.NoError(t, err)
	backend.Corrupt(0, data)

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyEmptyChain(t *testing.T) {
	l, err := Open(NewMemoryBackend())
	require.NoError(t, err)

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.VerifyChainIntegrity(1)
	assert.Error(t, err, "from index beyond the chain")
}

// failingBackend injects an Append failure after a threshold.
type failingBackend struct {
	*MemoryBackend
	failNext bool
}

func (f *failingBackend) Append(data []byte) (int64, error) {
	if f.failNext {
		return 0, errors.New("disk full")
	}
	return f.MemoryBackend.Append(data)
}

func TestAppendFailureLeavesNoPartialState(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	appendN(t, l, 2)

	backend.failNext = true
	_, err = l.AppendBlock(testCrystal(t, 9), "snaphash-9")
	require.Error(t, err)
	assert.True(t, IsStorage(err))

	stats, err := l.GetChainStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBlocks, "failed append is not visible")

	// The next successful append takes the index the failed one wanted.
	backend.failNext = false
	b, err := l.AppendBlock(testCrystal(t, 3), "snaphash-3")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Index)

	ok, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenResumesExistingChain(t *testing.T) {
	backend := NewMemoryBackend()
	clock := testClock()

	l1, err := Open(backend, WithClock(clock))
	require.NoError(t, err)
	first := appendN(t, l1, 3)

	l2, err := Open(backend, WithClock(clock))
	require.NoError(t, err)

	tail, ok := l2.Tail()
	require.True(t, ok)
	assert.Equal(t, first[2], tail)

	b, err := l2.AppendBlock(testCrystal(t, 3), "snaphash-3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.Index)
	assert.Equal(t, first[2].Hash, b.PreviousHash, "resumed ledger links to the stored tail")

	ok2, err := l2.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestOpenRejectsCorruptTail(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	appendN(t, l, 2)

	backend.Corrupt(1, []byte("garbage"))

	_, err = Open(backend)
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeCorrupt, le.Code)
}

func TestOpenRejectsTamperedTail(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 2)

	// A decodable tail whose stored hash no longer matches its fields.
	crystal, err := l.GetCrystal(1)
	require.NoError(t, err)
	tampered := blocks[1]
	tampered.TICID = "forged"
	data, err := encodeRecord(storedRecord{Block: tampered, TIC: crystal})
	require.NoError(t, err)
	backend.Corrupt(1, data)

	_, err = Open(backend)
	require.Error(t, err)
	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeCorrupt, le.Code)
}

func TestChainStatistics(t *testing.T) {
	l, err := Open(NewMemoryBackend(), WithClock(testClock()))
	require.NoError(t, err)

	stats, err := l.GetChainStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalBlocks)

	appendN(t, l, 3)

	stats, err = l.GetChainStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalBlocks)
	assert.Greater(t, stats.TotalSizeEstimate, int64(0))
}

func TestDeterministicBlockHash(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 1, 0, time.UTC)
	h1 := computeBlockHash(0, GenesisPreviousHash, ts, "tic-a", "snap-a", "digest-a")
	h2 := computeBlockHash(0, GenesisPreviousHash, ts, "tic-a", "snap-a", "digest-a")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, computeBlockHash(1, GenesisPreviousHash, ts, "tic-a", "snap-a", "digest-a"))
	assert.NotEqual(t, h1, computeBlockHash(0, GenesisPreviousHash, ts.Add(time.Nanosecond), "tic-a", "snap-a", "digest-a"))
	assert.NotEqual(t, h1, computeBlockHash(0, GenesisPreviousHash, ts, "tic-b", "snap-a", "digest-a"))
	assert.NotEqual(t, h1, computeBlockHash(0, GenesisPreviousHash, ts, "tic-a", "snap-a", "digest-b"))
}
