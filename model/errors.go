package model

import "errors"

// Error taxonomy for the pipeline. Callers classify with errors.Is; lower
// layers wrap these sentinels with context via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidReference marks input rejected before any network call.
	ErrInvalidReference = errors.New("invalid video reference")

	// ErrNotFound means the upstream has no transcript or no such video.
	// Terminal, never retried.
	ErrNotFound = errors.New("not found upstream")

	// ErrRateLimited and ErrTransientNetwork mark temporary upstream
	// blocking. Retryable by the retry controller.
	ErrRateLimited      = errors.New("rate limited")
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrExhaustedRetries wraps the last failure after the retry budget is
	// spent.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// Summarization-stage errors. Non-fatal to the item: it stays at
	// StageTranscribed with an error note.
	ErrAuthFailed          = errors.New("provider authentication failed")
	ErrQuotaExceeded       = errors.New("provider quota exceeded")
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrOwnershipViolation is a caller error: a tenant context touched a
	// row owned by a different tenant. Always surfaced, never retried.
	ErrOwnershipViolation = errors.New("ownership violation")

	// ErrStageRegression is returned by the store when a persisted stage
	// transition would move backwards.
	ErrStageRegression = errors.New("stage regression")
)

// IsRetryable reports whether the retry controller should try again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransientNetwork)
}
