package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/lodeapp/lode/internal/database/conversations"
	"github.com/lodeapp/lode/internal/importers"
	"github.com/lodeapp/lode/internal/search"
	"github.com/lodeapp/lode/internal/stats"
)

// ReindexHandler rebuilds the full-text index from the primary store and
// recomputes per-conversation statistics. Recovery path for index drift;
// after a successful run the row-count invariant holds again.
type ReindexHandler struct {
	store *conversations.Repository
	index *search.Index
}

func NewReindexHandler(store *conversations.Repository, index *search.Index) *ReindexHandler {
	return &ReindexHandler{store: store, index: index}
}

func (h *ReindexHandler) Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error) {
	progress(5, "rebuilding search index")

	if err := h.index.Rebuild(); err != nil {
		return nil, err
	}
	if err := h.index.Verify(); err != nil {
		return nil, fmt.Errorf("index verification after rebuild: %w", err)
	}

	ids, err := h.store.ListConversationIDs()
	if err != nil {
		return nil, err
	}

	recomputed := 0
	for i, id := range ids {
		if cancelled() {
			return map[string]any{"conversations_recomputed": recomputed}, ErrCancelled
		}

		conv, err := h.store.GetByConversationID(id)
		if err != nil {
			log.Printf("WARNING: reindex could not load %s: %v", id, err)
			continue
		}

		s := stats.Calculate(importers.DisplayPath(conv.Messages))
		if err := h.store.UpdateStats(id, s.MessageCount, s.WordCount); err != nil {
			log.Printf("WARNING: reindex could not update stats for %s: %v", id, err)
			continue
		}
		recomputed++

		if len(ids) > 0 {
			percent := 10 + (85*(i+1))/len(ids)
			progress(percent, fmt.Sprintf("recomputed stats for %d/%d conversations", i+1, len(ids)))
		}
	}

	messageCounts, err := h.index.MessageRowCounts()
	if err != nil {
		return nil, err
	}

	progress(100, "reindex complete")
	return map[string]any{
		"conversations_recomputed": recomputed,
		"messages_indexed":         messageCounts.Index,
	}, nil
}
