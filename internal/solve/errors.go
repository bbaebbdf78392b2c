package solve

import (
	"errors"
	"fmt"
)

// ConfigError represents a rejected engine configuration. These are fatal
// and detected before any iteration executes.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// SpectralNorm carries the measured norm of lambda*W for
	// non-contractive rejections.
	SpectralNorm float64

	// Lambda is the blend factor under rejection.
	Lambda float64
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeNonContractive indicates the spectral norm of lambda*W is >= 1,
	// so the iteration has no convergence guarantee.
	ErrCodeNonContractive ConfigErrorCode = "NON_CONTRACTIVE"

	// ErrCodeInvalidOption indicates an out-of-range engine option
	// (lambda outside (0,1], epsilon <= 0, max_iter < 1).
	ErrCodeInvalidOption ConfigErrorCode = "INVALID_OPTION"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Code == ErrCodeNonContractive {
		return fmt.Sprintf("%s: %s (spectral_norm=%.6f, lambda=%.6f)",
			e.Code, e.Message, e.SpectralNorm, e.Lambda)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNonContractive returns true if the error is a non-contractive
// configuration rejection. Uses errors.As to handle wrapped errors.
func IsNonContractive(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeNonContractive
	}
	return false
}

// IsInvalidOption returns true if the error is an invalid-option rejection.
func IsInvalidOption(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidOption
	}
	return false
}
