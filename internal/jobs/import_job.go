package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/lodeapp/lode/internal/database/conversations"
	"github.com/lodeapp/lode/internal/database/reports"
	"github.com/lodeapp/lode/internal/dedup"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/importers"
	"github.com/lodeapp/lode/internal/search"
	"github.com/lodeapp/lode/internal/stats"
)

// ImportHandler runs import jobs: normalize an export file, classify
// each conversation against stored hashes, commit new or changed ones
// atomically, and keep the audit report current.
//
// Records are processed sequentially; each conversation is one progress
// and cancellation checkpoint, so cancellation lands within one
// conversation's worth of work and never leaves a half-written record.
type ImportHandler struct {
	normalizer *importers.Normalizer
	store      *conversations.Repository
	reports    *reports.Repository
	engine     *dedup.Engine
	index      *search.Index
}

func NewImportHandler(
	normalizer *importers.Normalizer,
	store *conversations.Repository,
	reportRepo *reports.Repository,
	engine *dedup.Engine,
	index *search.Index,
) *ImportHandler {
	return &ImportHandler{
		normalizer: normalizer,
		store:      store,
		reports:    reportRepo,
		engine:     engine,
		index:      index,
	}
}

type importCounters struct {
	imported   int
	failed     int
	messages   int
	duplicates int
}

func (c importCounters) result() map[string]any {
	return map[string]any{
		"conversations_imported": c.imported,
		"conversations_failed":   c.failed,
		"messages_imported":      c.messages,
		"duplicates_skipped":     c.duplicates,
	}
}

func (h *ImportHandler) Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error) {
	if params.FilePath == "" {
		return nil, fmt.Errorf("import requires file_path")
	}

	// A structurally invalid file fails here, before any record is
	// committed and before the batch report exists.
	stream, err := h.normalizer.NormalizeFile(params.SourceType, params.FilePath)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	batchID := uuid.New().String()
	if _, err := h.reports.Start(batchID, params.FilePath, params.SourceType); err != nil {
		return nil, err
	}

	progress(5, fmt.Sprintf("importing %s (batch %s)", params.FilePath, batchID))

	var counters importCounters
	var recordErrors []string
	processed := 0

	for {
		if cancelled() {
			h.finalizeReport(batchID, entities.ReportStatusCancelled, recordErrors)
			return counters.result(), ErrCancelled
		}

		record, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The stream itself broke mid-file; everything already
			// committed stays, the job fails.
			h.finalizeReport(batchID, entities.ReportStatusFailed, append(recordErrors, err.Error()))
			return nil, err
		}

		processed++

		if record.Err != nil {
			counters.failed++
			recordErrors = append(recordErrors, record.Err.Error())
			if err := h.reports.RecordFailure(batchID, record.Conversation.ConversationID, record.Err.Error()); err != nil {
				log.Printf("WARNING: failed to record import failure: %v", err)
			}
			continue
		}

		if err := h.importRecord(batchID, record, params.CalculateStats, &counters, &recordErrors); err != nil {
			// Storage unreachable: job-fatal.
			h.finalizeReport(batchID, entities.ReportStatusFailed, append(recordErrors, err.Error()))
			return nil, err
		}

		percent := 5 + processed
		if percent > 85 {
			percent = 85
		}
		progress(percent, fmt.Sprintf("imported %d conversations", processed))
	}

	if cancelled() {
		h.finalizeReport(batchID, entities.ReportStatusCancelled, recordErrors)
		return counters.result(), ErrCancelled
	}

	if params.BuildIndex {
		progress(90, "rebuilding search index")
		if err := h.index.Rebuild(); err != nil {
			h.finalizeReport(batchID, entities.ReportStatusFailed, append(recordErrors, err.Error()))
			return nil, err
		}
	}

	h.finalizeReport(batchID, entities.ReportStatusCompleted, recordErrors)
	progress(100, fmt.Sprintf("import complete: %d imported, %d duplicates skipped, %d failed",
		counters.imported, counters.duplicates, counters.failed))

	result := counters.result()
	result["batch_id"] = batchID
	return result, nil
}

// importRecord commits one normalized conversation. Returns an error
// only when storage is unreachable; per-record failures are absorbed
// into the report.
func (h *ImportHandler) importRecord(batchID string, record *importers.Record, calcStats bool, counters *importCounters, recordErrors *[]string) error {
	convID := record.Conversation.ConversationID

	_, summary, err := h.engine.Classify(convID, record.Messages)
	if err != nil {
		return err
	}

	exists, err := h.store.Exists(convID)
	if err != nil {
		return err
	}

	// Clean re-import: every message already stored under an identical
	// fingerprint. Skip without touching counts or rows.
	if exists && summary.AllDuplicate() && summary.New == 0 {
		counters.duplicates += len(record.Messages)
		if err := h.reports.RecordDuplicate(batchID, convID, len(record.Messages)); err != nil {
			log.Printf("WARNING: failed to record duplicate: %v", err)
		}
		return nil
	}

	commit := func() error {
		if exists {
			return h.store.ReplaceConversation(&record.Conversation, record.Messages)
		}
		return h.store.InsertConversation(&record.Conversation, record.Messages)
	}

	if err := commit(); err != nil {
		// One retry per conversation; a second failure becomes a
		// record error and the import moves on.
		log.Printf("WARNING: commit failed for %s, retrying once: %v", convID, err)
		if err := commit(); err != nil {
			counters.failed++
			*recordErrors = append(*recordErrors, err.Error())
			if reportErr := h.reports.RecordFailure(batchID, convID, err.Error()); reportErr != nil {
				log.Printf("WARNING: failed to record import failure: %v", reportErr)
			}
			return nil
		}
	}

	counters.imported++
	counters.messages += summary.New + summary.Conflicting
	counters.duplicates += summary.Duplicates

	if calcStats {
		s := stats.Calculate(record.PathMessages())
		if err := h.store.UpdateStats(convID, s.MessageCount, s.WordCount); err != nil {
			log.Printf("WARNING: failed to update stats for %s: %v", convID, err)
		}
	}

	if err := h.reports.RecordSuccess(batchID, convID, summary.New+summary.Conflicting); err != nil {
		log.Printf("WARNING: failed to record import success: %v", err)
	}
	return nil
}

func (h *ImportHandler) finalizeReport(batchID string, status entities.ReportStatus, recordErrors []string) {
	summary := ""
	if len(recordErrors) > 0 {
		summary = strings.Join(recordErrors, "; ")
	}
	if err := h.reports.Finalize(batchID, status, summary); err != nil {
		log.Printf("WARNING: failed to finalize import report %s: %v", batchID, err)
	}
}
