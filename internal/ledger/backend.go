package ledger

import "sync"

// Backend is the injected record store the chain persists through. The
// chain makes no assumption about the storage technology; offsets are
// dense record sequence numbers assigned by Append starting at 0.
//
// Append must be atomic: a failed append leaves no visible record.
type Backend interface {
	// Append persists one record and returns its offset.
	Append(data []byte) (int64, error)

	// Read returns the record at the given offset.
	Read(offset int64) ([]byte, error)

	// Stats returns the record count and total payload bytes.
	Stats() (count int64, bytes int64, err error)

	// Flush forces durability of all appended records.
	Flush() error

	// Close releases backend resources.
	Close() error
}

// MemoryBackend is an in-process Backend for tests and ephemeral chains.
type MemoryBackend struct {
	mu      sync.RWMutex
	records [][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Append stores a copy of the record.
func (m *MemoryBackend) Append(data []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	m.records = append(m.records, copied)
	return int64(len(m.records) - 1), nil
}

// Read returns a copy of the record at offset.
func (m *MemoryBackend) Read(offset int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 || offset >= int64(len(m.records)) {
		return nil, &LedgerError{Code: ErrCodeNotFound, Op: "memory read", Index: offset}
	}
	copied := make([]byte, len(m.records[offset]))
	copy(copied, m.records[offset])
	return copied, nil
}

// Stats returns record count and total bytes.
func (m *MemoryBackend) Stats() (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total int64
	for _, r := range m.records {
		total += int64(len(r))
	}
	return int64(len(m.records)), total, nil
}

// Flush is a no-op for memory.
func (m *MemoryBackend) Flush() error { return nil }

// Close is a no-op for memory.
func (m *MemoryBackend) Close() error { return nil }

// Corrupt overwrites the record at offset with the given bytes. Test
// helper for integrity verification scenarios; never used by the chain.
func (m *MemoryBackend) Corrupt(offset int64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= 0 && offset < int64(len(m.records)) {
		m.records[offset] = data
	}
}
