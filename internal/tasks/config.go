package tasks

import "time"

// Config tunes the background maintenance queue.
type Config struct {
	// Workers is how many tasks may run concurrently. Default: 2
	Workers int

	// MaxRetries caps retry attempts for a failing task. Default: 3
	MaxRetries int

	// RetryDelay is the backoff between attempts. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout bounds a single task execution. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is how long a claimed task may sit before it is
	// handed back to the queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished task rows are swept.
	// Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long finished task rows stay around
	// for inspection. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns the queue tuning used when nothing is
// overridden through the environment.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
