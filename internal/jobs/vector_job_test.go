package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

type fakeEmbedder struct {
	texts []string
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.texts = append(f.texts, text)
	return []float32{0.1, 0.2}, nil
}

func TestVectorIndexHandler_EmbedsEachConversation(t *testing.T) {
	f, cleanup := setupImportFixture(t)
	defer cleanup()

	path := writeExport(t, claudeExportTwoConversations)
	runImport(t, f, Params{SourceType: entities.AISourceClaude, FilePath: path})

	embedder := &fakeEmbedder{}
	handler := NewVectorIndexHandler(f.store, embedder)

	result, err := handler.Run(context.Background(), Params{}, noProgress, neverCancelled)
	require.NoError(t, err)

	assert.Equal(t, 2, result["conversations_indexed"])
	assert.Equal(t, 0, result["conversations_skipped"])
	require.Len(t, embedder.texts, 2)
	// Title and message content both feed the embedding text
	assert.Contains(t, embedder.texts[0], "First chat")
	assert.Contains(t, embedder.texts[0], "docker")
}

func TestVectorIndexHandler_EmbeddingFailuresSkipped(t *testing.T) {
	f, cleanup := setupImportFixture(t)
	defer cleanup()

	path := writeExport(t, claudeExportTwoConversations)
	runImport(t, f, Params{SourceType: entities.AISourceClaude, FilePath: path})

	handler := NewVectorIndexHandler(f.store, &fakeEmbedder{err: errors.New("backend down")})

	result, err := handler.Run(context.Background(), Params{}, noProgress, neverCancelled)
	require.NoError(t, err)
	assert.Equal(t, 0, result["conversations_indexed"])
	assert.Equal(t, 2, result["conversations_skipped"])
}

func TestVectorIndexHandler_NoBackend(t *testing.T) {
	f, cleanup := setupImportFixture(t)
	defer cleanup()

	handler := NewVectorIndexHandler(f.store, nil)
	_, err := handler.Run(context.Background(), Params{}, noProgress, neverCancelled)
	assert.Error(t, err)
}
