package usecase

import "time"

const (
	// DefaultMaxConflictRetries bounds the re-attempt loop when a
	// conditional save loses to a concurrent transfer.
	DefaultMaxConflictRetries = 5

	// conflictRetryInitialInterval is the first backoff delay between
	// conflicting attempts.
	conflictRetryInitialInterval = 10 * time.Millisecond

	// conflictRetryMaxInterval caps the backoff delay.
	conflictRetryMaxInterval = 250 * time.Millisecond

	// DefaultAccountCacheTTL is how long cached account reads stay fresh.
	DefaultAccountCacheTTL = 30 * time.Second
)
