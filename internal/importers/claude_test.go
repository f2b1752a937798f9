package importers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

func TestClaudeAdapter_BasicConversation(t *testing.T) {
	export := `[{
		"uuid": "claude-conv-1",
		"name": "A chat",
		"created_at": "2024-01-15T10:00:00Z",
		"updated_at": "2024-01-15T10:05:00Z",
		"chat_messages": [
			{"uuid": "m1", "sender": "human", "text": "Hello", "created_at": "2024-01-15T10:00:00Z"},
			{"uuid": "m2", "sender": "assistant", "text": "Hi!", "created_at": "2024-01-15T10:00:30Z"}
		]
	}]`

	adapter := &ClaudeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	record := records[0]
	require.NoError(t, record.Err)

	assert.Equal(t, "claude-conv-1", record.Conversation.ConversationID)
	assert.Equal(t, "A chat", record.Conversation.Title)
	assert.Equal(t, entities.AISourceClaude, record.Conversation.AISource)
	assert.InDelta(t, 1705312800, record.Conversation.CreateTime, 1)

	require.Len(t, record.Messages, 2)
	// "human" maps to the canonical user role
	assert.Equal(t, entities.RoleUser, record.Messages[0].Role)
	assert.Equal(t, entities.RoleAssistant, record.Messages[1].Role)
	assert.Nil(t, record.Messages[0].ParentID)
	assert.Equal(t, []string{"m1", "m2"}, record.Path)
}

func TestClaudeAdapter_TitleFallsBackToSummary(t *testing.T) {
	longSummary := strings.Repeat("x", 150)
	export := `[{
		"uuid": "conv-1",
		"name": "",
		"summary": "` + longSummary + `",
		"chat_messages": [
			{"uuid": "m1", "sender": "human", "text": "hi"}
		]
	}]`

	adapter := &ClaudeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	require.NoError(t, records[0].Err)
	assert.Len(t, records[0].Conversation.Title, 100)
}

func TestClaudeAdapter_ContentBlocksFallback(t *testing.T) {
	export := `[{
		"uuid": "conv-1",
		"name": "blocks",
		"chat_messages": [
			{"uuid": "m1", "sender": "assistant", "text": "", "content": [
				{"type": "text", "text": "first block"},
				{"type": "tool_use", "text": ""},
				{"type": "text", "text": "second block"}
			]}
		]
	}]`

	adapter := &ClaudeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	require.NoError(t, records[0].Err)
	require.Len(t, records[0].Messages, 1)
	assert.Equal(t, "first block\nsecond block", records[0].Messages[0].Content)
}

func TestClaudeAdapter_MissingUUIDYieldsRecordError(t *testing.T) {
	export := `[{"name": "no id", "chat_messages": [{"uuid": "m1", "sender": "human", "text": "hi"}]}]`

	adapter := &ClaudeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	assert.Error(t, records[0].Err)
}

func TestClaudeAdapter_EmptyConversationYieldsRecordError(t *testing.T) {
	export := `[{"uuid": "conv-1", "name": "empty", "chat_messages": [
		{"uuid": "m1", "sender": "human", "text": "   "}
	]}]`

	adapter := &ClaudeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	assert.Error(t, records[0].Err)
}

func TestParseISOTime(t *testing.T) {
	assert.Equal(t, float64(0), parseISOTime(""))
	assert.Equal(t, float64(0), parseISOTime("not a timestamp"))
	assert.InDelta(t, 1705312800, parseISOTime("2024-01-15T10:00:00Z"), 0.001)
	assert.InDelta(t, 1705312800.5, parseISOTime("2024-01-15T10:00:00.500000Z"), 0.001)
}
