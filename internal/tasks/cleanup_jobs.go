package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// FinishedJobPruner provides the ability to delete old finished job rows.
type FinishedJobPruner interface {
	DeleteFinishedBefore(cutoff time.Time) (int64, error)
}

// CleanupJobsTask removes persisted job rows that reached a terminal state
// before the retention cutoff.
type CleanupJobsTask struct {
	// Retention is how long finished job rows are kept.
	Retention time.Duration
}

// Config returns the queue configuration for job cleanup tasks.
func (t CleanupJobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_jobs",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupJobsProcessor creates a processor function for CleanupJobsTask.
func CleanupJobsProcessor(pruner FinishedJobPruner) backlite.QueueProcessor[CleanupJobsTask] {
	return func(ctx context.Context, task CleanupJobsTask) error {
		if pruner == nil {
			return fmt.Errorf("finished job pruner not configured")
		}

		retention := task.Retention
		if retention <= 0 {
			retention = 7 * 24 * time.Hour
		}

		deleted, err := pruner.DeleteFinishedBefore(time.Now().Add(-retention))
		if err != nil {
			return fmt.Errorf("cleanup finished jobs: %w", err)
		}

		log.Printf("[TASK] Pruned %d finished job rows", deleted)
		return nil
	}
}

// NewCleanupJobsQueue creates a backlite queue for job row cleanup tasks.
func NewCleanupJobsQueue(pruner FinishedJobPruner) backlite.Queue {
	return backlite.NewQueue(CleanupJobsProcessor(pruner))
}
