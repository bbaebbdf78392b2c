package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mef-lab/coagula/internal/gate"
)

// backendContract exercises the Backend behaviors the chain depends on.
func backendContract(t *testing.T, backend Backend) {
	t.Helper()

	count, bytes, err := backend.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, int64(0), bytes)

	off0, err := backend.Append([]byte("record-zero"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), off0)

	off1, err := backend.Append([]byte("record-one"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), off1)

	data, err := backend.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("record-zero"), data)

	_, err = backend.Read(5)
	assert.True(t, IsNotFound(err))

	count, bytes, err = backend.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(len("record-zero")+len("record-one")), bytes)

	require.NoError(t, backend.Flush())
}

func TestMemoryBackendContract(t *testing.T) {
	backendContract(t, NewMemoryBackend())
}

func TestSQLiteBackendContract(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	defer backend.Close()

	backendContract(t, backend)
}

func TestBadgerBackendContract(t *testing.T) {
	backend, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer backend.Close()

	backendContract(t, backend)
}

func TestSQLiteChainSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chain.db")

	backend, err := OpenSQLite(path)
	require.NoError(t, err)
	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	blocks := appendN(t, l, 3)
	require.NoError(t, backend.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	l2, err := Open(reopened)
	require.NoError(t, err)
	tail, ok := l2.Tail()
	require.True(t, ok)
	assert.Equal(t, blocks[2], tail)

	verified, err := l2.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestBadgerChain(t *testing.T) {
	backend, err := OpenBadger(InMemoryBadgerConfig())
	require.NoError(t, err)
	defer backend.Close()

	l, err := Open(backend, WithClock(testClock()))
	require.NoError(t, err)
	appendN(t, l, 4)

	verified, err := l.VerifyChainIntegrity(0)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestSQLiteEventSink(t *testing.T) {
	backend, err := OpenSQLite(filepath.Join(t.TempDir(), "chain.db"))
	require.NoError(t, err)
	defer backend.Close()

	sink := backend.EventSink(nil)
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sink.Emit(gate.Event{
		Seq:       1,
		Timestamp: ts,
		Checks:    gate.Checks{PoR: gate.PoRValid, DeltaPi: 0.001, Phi: 0.9, DeltaV: -0.1},
		Decision:  gate.Decision{Commit: true, Reason: "all checks passed"},
	})
	sink.Emit(gate.Event{
		Seq:       2,
		Timestamp: ts.Add(time.Second),
		Checks:    gate.Checks{PoR: gate.PoRInvalid, DeltaPi: 0.5, Phi: 0.2, DeltaV: 0.1},
		Decision:  gate.Decision{Commit: false, Reason: "por invalid"},
	})

	events, err := backend.Events()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[0].Decision.Commit)
	assert.False(t, events[1].Decision.Commit)
	assert.Equal(t, gate.PoRInvalid, events[1].Checks.PoR)
}
