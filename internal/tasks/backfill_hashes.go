package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// HashBackfiller provides the ability to compute content hashes for messages
// imported before hashing existed.
type HashBackfiller interface {
	BackfillHashes() (int64, error)
}

// BackfillHashesTask computes missing content hashes for stored messages.
type BackfillHashesTask struct{}

// Config returns the queue configuration for hash backfill tasks.
func (t BackfillHashesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "backfill_hashes",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// BackfillHashesProcessor creates a processor function for BackfillHashesTask.
func BackfillHashesProcessor(backfiller HashBackfiller) backlite.QueueProcessor[BackfillHashesTask] {
	return func(ctx context.Context, task BackfillHashesTask) error {
		if backfiller == nil {
			return fmt.Errorf("hash backfiller not configured")
		}

		filled, err := backfiller.BackfillHashes()
		if err != nil {
			return fmt.Errorf("backfill content hashes: %w", err)
		}

		if filled > 0 {
			log.Printf("[TASK] Backfilled %d content hashes", filled)
		}
		return nil
	}
}

// NewBackfillHashesQueue creates a backlite queue for hash backfill tasks.
func NewBackfillHashesQueue(backfiller HashBackfiller) backlite.Queue {
	return backlite.NewQueue(BackfillHashesProcessor(backfiller))
}
