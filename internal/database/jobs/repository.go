// Package jobs persists job rows so finished jobs stay inspectable
// across restarts. The in-memory manager owns live job state; this
// repository only mirrors it.
package jobs

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lodeapp/lode/internal/entities"
)

// Repository handles job row persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new jobs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new pending job row.
func (r *Repository) Create(job *entities.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

// Update mirrors the manager's current view of a job.
func (r *Repository) Update(job *entities.Job) error {
	if err := r.db.Save(job).Error; err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return nil
}

// Get retrieves a job row by id.
func (r *Repository) Get(id string) (*entities.Job, error) {
	var job entities.Job
	if err := r.db.First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns job rows ordered by creation time descending.
func (r *Repository) List(limit int) ([]entities.Job, error) {
	var jobs []entities.Job
	q := r.db.Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobs).Error
	return jobs, err
}

// MarkOrphansFailed converts rows stuck in pending or running into
// failed. Called once at startup: a non-terminal row can only mean the
// process died mid-job, and an orphaned running job is a correctness
// bug, not a state worth preserving.
func (r *Repository) MarkOrphansFailed() (int64, error) {
	now := time.Now()
	res := r.db.Model(&entities.Job{}).
		Where("status IN ?", []entities.JobStatus{entities.JobStatusPending, entities.JobStatusRunning}).
		Updates(map[string]any{
			"status":       entities.JobStatusFailed,
			"error_text":   "interrupted by shutdown",
			"completed_at": &now,
		})
	return res.RowsAffected, res.Error
}

// DeleteFinishedBefore prunes terminal job rows older than the cutoff.
// Used by the retention maintenance task.
func (r *Repository) DeleteFinishedBefore(cutoff time.Time) (int64, error) {
	res := r.db.
		Where("status IN ?", []entities.JobStatus{
			entities.JobStatusCompleted,
			entities.JobStatusFailed,
			entities.JobStatusCancelled,
		}).
		Where("completed_at IS NOT NULL AND completed_at < ?", cutoff).
		Delete(&entities.Job{})
	return res.RowsAffected, res.Error
}
