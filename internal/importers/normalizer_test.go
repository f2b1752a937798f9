package importers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

func TestNormalizer_UnknownSource(t *testing.T) {
	normalizer := NewNormalizer()
	_, err := normalizer.Normalize("gemini", strings.NewReader("[]"))
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestNormalizer_SelectsAdapterBySource(t *testing.T) {
	normalizer := NewNormalizer()

	stream, err := normalizer.Normalize(entities.AISourceClaude, strings.NewReader(`[{
		"uuid": "conv-1",
		"name": "via normalizer",
		"chat_messages": [{"uuid": "m1", "sender": "human", "text": "hi"}]
	}]`))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	assert.Equal(t, entities.AISourceClaude, records[0].Conversation.AISource)
}

func TestNormalizer_NormalizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{
		"uuid": "conv-file",
		"name": "from disk",
		"chat_messages": [{"uuid": "m1", "sender": "human", "text": "hi"}]
	}]`), 0o644))

	normalizer := NewNormalizer()
	stream, err := normalizer.NormalizeFile(entities.AISourceClaude, path)
	require.NoError(t, err)

	records := readAll(t, stream)
	require.Len(t, records, 1)
	assert.Equal(t, "conv-file", records[0].Conversation.ConversationID)
	require.NoError(t, stream.Close())
}

func TestNormalizer_NormalizeFile_Missing(t *testing.T) {
	normalizer := NewNormalizer()
	_, err := normalizer.NormalizeFile(entities.AISourceClaude, "/nonexistent/export.json")
	assert.Error(t, err)
}

func TestMapRole(t *testing.T) {
	assert.Equal(t, entities.RoleUser, mapRole("user"))
	assert.Equal(t, entities.RoleUser, mapRole("human"))
	assert.Equal(t, entities.RoleAssistant, mapRole("assistant"))
	assert.Equal(t, entities.RoleSystem, mapRole("system"))
	assert.Equal(t, entities.RoleSystem, mapRole("tool"))
}
