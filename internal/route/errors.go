package route

import (
	"errors"
	"fmt"
)

// RouteError represents a configuration failure detected during route
// derivation or validation. These are fatal: a malformed route never
// reaches the engine.
type RouteError struct {
	// Code identifies the error category.
	Code RouteErrorCode

	// Message is a human-readable description.
	Message string

	// Seed identifies the derivation request, when known.
	Seed string

	// Metric names the offending mesh metric (for missing-metric errors).
	Metric string
}

// RouteErrorCode categorizes route errors.
type RouteErrorCode string

const (
	// ErrCodeMissingMetric indicates a required mesh metric was absent in
	// strict scoring mode.
	ErrCodeMissingMetric RouteErrorCode = "MISSING_METRIC"

	// ErrCodeMalformedRoute indicates sigma is not a bijection on {1..7}.
	ErrCodeMalformedRoute RouteErrorCode = "MALFORMED_ROUTE"
)

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("%s: %s (seed=%s, metric=%s)", e.Code, e.Message, e.Seed, e.Metric)
	}
	if e.Seed != "" {
		return fmt.Sprintf("%s: %s (seed=%s)", e.Code, e.Message, e.Seed)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingMetric returns true if the error is a missing-metric error.
// Uses errors.As to handle wrapped errors.
func IsMissingMetric(err error) bool {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingMetric
	}
	return false
}

// IsMalformedRoute returns true if the error is a malformed-route error.
func IsMalformedRoute(err error) bool {
	var re *RouteError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMalformedRoute
	}
	return false
}

// newMissingMetricError creates a RouteError for an absent required metric.
func newMissingMetricError(seed, metric string) *RouteError {
	return &RouteError{
		Code:    ErrCodeMissingMetric,
		Message: "required mesh metric is missing in strict mode",
		Seed:    seed,
		Metric:  metric,
	}
}
