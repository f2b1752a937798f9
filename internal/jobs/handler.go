// Package jobs implements the job registry and scheduler: submission,
// per-job goroutine execution, progress tracking, and cooperative
// cancellation.
package jobs

import (
	"context"
	"errors"

	"github.com/lodeapp/lode/internal/entities"
)

var (
	// ErrNotFound is returned when no job with the given id exists.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidState is returned when cancelling a job already in a
	// terminal state. The job is untouched.
	ErrInvalidState = errors.New("job is not cancellable")

	// ErrUnknownJobType is returned on submission of an unregistered
	// job kind.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrCancelled is returned by a handler that observed its
	// cancellation flag at a checkpoint. Not a failure: the manager
	// converts it into a clean cancelled transition with partial
	// results preserved.
	ErrCancelled = errors.New("job cancelled")
)

// Params carries job parameters. Import jobs use all fields; reindex and
// vector-index jobs take none.
type Params struct {
	SourceType     entities.AISource `json:"source_type,omitempty"`
	FilePath       string            `json:"file_path,omitempty"`
	CalculateStats bool              `json:"calculate_stats,omitempty"`
	BuildIndex     bool              `json:"build_index,omitempty"`
}

// ProgressFunc reports progress as a percentage plus a human-readable
// message. The manager keeps reported progress monotonic, so handlers
// may report conservatively without clamping themselves.
type ProgressFunc func(percent int, message string)

// CancelledFunc reports whether cancellation was requested. Handlers
// check it at the same checkpoints where they report progress, bounding
// cancellation latency to one unit of work.
type CancelledFunc func() bool

// Handler runs one job kind. Implementations process records
// sequentially, report progress after each unit of work, and return
// ErrCancelled when the flag is observed. Any other error fails the job.
//
// Adding a job kind means implementing Handler and registering it; the
// manager itself never changes.
type Handler interface {
	Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error)
}
