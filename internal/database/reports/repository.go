// Package reports tracks import batches for transparency and debugging.
// One ImportReport per import job invocation, append-only once the job
// starts, finalized exactly once at completion.
package reports

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lodeapp/lode/internal/entities"
)

// Repository handles import report persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reports repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Start opens a new report for an import batch.
func (r *Repository) Start(batchID, sourceFile string, source entities.AISource) (*entities.ImportReport, error) {
	report := &entities.ImportReport{
		BatchID:    batchID,
		SourceFile: sourceFile,
		AISource:   source,
		Status:     entities.ReportStatusInProgress,
		StartedAt:  time.Now(),
	}
	if err := r.db.Create(report).Error; err != nil {
		return nil, fmt.Errorf("start import report %s: %w", batchID, err)
	}
	return report, nil
}

// RecordSuccess logs one imported conversation and bumps the counters.
func (r *Repository) RecordSuccess(batchID, conversationID string, messages int) error {
	return r.record(batchID, entities.ImportRecord{
		BatchID:        batchID,
		ConversationID: conversationID,
		Status:         entities.RecordStatusSuccess,
	}, map[string]any{
		"conversations_imported": gorm.Expr("conversations_imported + 1"),
		"messages_imported":      gorm.Expr("messages_imported + ?", messages),
	})
}

// RecordDuplicate logs a conversation skipped as a clean re-import.
func (r *Repository) RecordDuplicate(batchID, conversationID string, messages int) error {
	return r.record(batchID, entities.ImportRecord{
		BatchID:        batchID,
		ConversationID: conversationID,
		Status:         entities.RecordStatusDuplicate,
	}, map[string]any{
		"duplicates_skipped": gorm.Expr("duplicates_skipped + ?", messages),
	})
}

// RecordFailure logs one conversation that could not be imported. The
// import continues; the error lands in the report, not the job status.
func (r *Repository) RecordFailure(batchID, conversationID, errorMessage string) error {
	return r.record(batchID, entities.ImportRecord{
		BatchID:        batchID,
		ConversationID: conversationID,
		Status:         entities.RecordStatusFailed,
		ErrorMessage:   errorMessage,
	}, map[string]any{
		"conversations_failed": gorm.Expr("conversations_failed + 1"),
	})
}

func (r *Repository) record(batchID string, rec entities.ImportRecord, counters map[string]any) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert import record for batch %s: %w", batchID, err)
		}
		if err := tx.Model(&entities.ImportReport{}).
			Where("batch_id = ?", batchID).
			Updates(counters).Error; err != nil {
			return fmt.Errorf("bump report counters for batch %s: %w", batchID, err)
		}
		return nil
	})
}

// Finalize closes the report with its terminal status and an optional
// summary of record-level errors.
func (r *Repository) Finalize(batchID string, status entities.ReportStatus, errorSummary string) error {
	now := time.Now()
	return r.db.Model(&entities.ImportReport{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]any{
			"status":        status,
			"error_summary": errorSummary,
			"completed_at":  &now,
		}).Error
}

// Get retrieves a report with no records attached.
func (r *Repository) Get(batchID string) (*entities.ImportReport, error) {
	var report entities.ImportReport
	if err := r.db.First(&report, "batch_id = ?", batchID).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// Records returns the per-conversation outcomes of one batch.
func (r *Repository) Records(batchID string) ([]entities.ImportRecord, error) {
	var records []entities.ImportRecord
	err := r.db.Where("batch_id = ?", batchID).Order("id ASC").Find(&records).Error
	return records, err
}

// IsNotFound reports whether err means the report does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
