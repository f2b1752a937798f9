package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lodeapp/lode/internal/database/conversations"
	"github.com/lodeapp/lode/internal/embeddings"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/importers"
)

// VectorIndexHandler feeds each conversation's linearized text to the
// embedding runtime. The runtime owns vector storage and similarity
// search; this job only drives it, one conversation per checkpoint.
type VectorIndexHandler struct {
	store    *conversations.Repository
	embedder embeddings.Embedder
}

func NewVectorIndexHandler(store *conversations.Repository, embedder embeddings.Embedder) *VectorIndexHandler {
	return &VectorIndexHandler{store: store, embedder: embedder}
}

func (h *VectorIndexHandler) Run(ctx context.Context, params Params, progress ProgressFunc, cancelled CancelledFunc) (map[string]any, error) {
	if h.embedder == nil {
		return nil, fmt.Errorf("no embedding backend configured")
	}

	ids, err := h.store.ListConversationIDs()
	if err != nil {
		return nil, err
	}

	progress(5, fmt.Sprintf("vector-indexing %d conversations", len(ids)))

	indexed := 0
	skipped := 0
	for i, id := range ids {
		if cancelled() {
			return map[string]any{"conversations_indexed": indexed, "conversations_skipped": skipped}, ErrCancelled
		}

		conv, err := h.store.GetByConversationID(id)
		if err != nil {
			log.Printf("WARNING: vector index could not load %s: %v", id, err)
			skipped++
			continue
		}

		text := conversationText(conv.Title, importers.DisplayPath(conv.Messages))
		if text == "" {
			skipped++
			continue
		}

		if _, err := h.embedder.Embed(ctx, text); err != nil {
			log.Printf("WARNING: embedding failed for %s: %v", id, err)
			skipped++
			continue
		}
		indexed++

		if len(ids) > 0 {
			percent := 5 + (95*(i+1))/len(ids)
			progress(percent, fmt.Sprintf("embedded %d/%d conversations", i+1, len(ids)))
		}
	}

	progress(100, "vector indexing complete")
	return map[string]any{
		"conversations_indexed": indexed,
		"conversations_skipped": skipped,
	}, nil
}

func conversationText(title string, messages []entities.Message) string {
	parts := make([]string, 0, len(messages)+1)
	if strings.TrimSpace(title) != "" {
		parts = append(parts, title)
	}
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}
