package ledger

import (
	"errors"
	"fmt"
)

// LedgerError represents a storage or lookup failure in the hash chain.
// Integrity violations are not errors of this type: VerifyChainIntegrity
// reports them as a false result, which callers must treat as a critical
// operational signal.
type LedgerError struct {
	// Code identifies the error category.
	Code LedgerErrorCode

	// Op names the failing operation.
	Op string

	// Index is the affected block index, when known (-1 otherwise).
	Index int64

	// Err is the underlying cause.
	Err error
}

// LedgerErrorCode categorizes ledger errors.
type LedgerErrorCode string

const (
	// ErrCodeStorage indicates the backend failed to persist or read. The
	// affected append has no partial visibility; retry policy belongs to
	// the calling orchestrator.
	ErrCodeStorage LedgerErrorCode = "STORAGE"

	// ErrCodeNotFound indicates the requested block index does not exist.
	ErrCodeNotFound LedgerErrorCode = "NOT_FOUND"

	// ErrCodeCorrupt indicates a stored record could not be decoded.
	ErrCodeCorrupt LedgerErrorCode = "CORRUPT"
)

// Error implements the error interface.
func (e *LedgerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (index=%d): %v", e.Code, e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("%s: %s (index=%d)", e.Code, e.Op, e.Index)
}

// Unwrap returns the underlying cause.
func (e *LedgerError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error is a missing-block lookup.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code == ErrCodeNotFound
	}
	return false
}

// IsStorage returns true if the error is a backend storage failure.
func IsStorage(err error) bool {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code == ErrCodeStorage
	}
	return false
}
