// Sentinel errors and wrappers classifying upload failures. These let
// the coordinator use errors.Is for retry decisions instead of string
// matching.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/macadam/types"
)

// Sentinel errors for upload failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrRateLimited indicates the service rejected the call for rate
	// limiting (429). Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a network timeout. Retryable.
	ErrTimeout = errors.New("operation timed out")

	// ErrServerFault indicates a transient server-side failure (5xx).
	// Retryable.
	ErrServerFault = errors.New("transient server fault")

	// ErrInvalidContent indicates the service rejected the bytes as
	// unprocessable (400). Terminal for the asset.
	ErrInvalidContent = errors.New("invalid content")

	// ErrModerationRejected indicates the content failed moderation.
	// Terminal for the asset.
	ErrModerationRejected = errors.New("moderation rejected")

	// ErrUnauthorized indicates missing or invalid credentials (401/403).
	// Fatal for the whole run: further calls cannot succeed.
	ErrUnauthorized = errors.New("unauthorized")
)

// UploadError wraps an underlying error with upload classification.
// It preserves the original error in the chain for errors.As inspection.
type UploadError struct {
	// Kind is the sentinel error for classification.
	Kind error
	// Op is the operation that failed (e.g. "upload", "poll").
	Op string
	// Key is the logical key of the asset involved.
	Key types.LogicalKey
	// Err is the underlying error.
	Err error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Kind)
}

// Unwrap returns the underlying error for chain traversal.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *UploadError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// NewUploadError creates a classified upload error.
func NewUploadError(kind error, op string, key types.LogicalKey, err error) *UploadError {
	return &UploadError{Kind: kind, Op: op, Key: key, Err: err}
}

// Retryable reports whether the coordinator should retry the call with
// backoff. Context cancellation is never retryable.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerFault) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return false
}

// Fatal reports whether the error invalidates the whole run rather than
// a single asset.
func Fatal(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// classifyStatus maps an HTTP response status to a sentinel error.
// Returns nil for 2xx.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == 429:
		return ErrRateLimited
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code == 400 || code == 422:
		return ErrInvalidContent
	case code >= 500:
		return ErrServerFault
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
