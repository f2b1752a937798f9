package importers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

func TestLodeAdapter_RoundTripFields(t *testing.T) {
	export := `{
		"lode_export_format_version": "1",
		"conversation": {
			"conversation_id": "conv-1",
			"title": "Native",
			"create_time": 1700000000,
			"update_time": 1700000100,
			"custom_title": "My renamed chat",
			"starred": true
		},
		"messages": [
			{"message_id": "m1", "parent_id": null, "role": "user", "content": "hi", "create_time": 1, "weight": 1, "status": "finished_successfully"},
			{"message_id": "m2", "parent_id": "m1", "role": "assistant", "content": "hello", "create_time": 2, "weight": 0.5, "status": "finished_successfully"}
		]
	}`

	adapter := &LodeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	record := records[0]
	require.NoError(t, record.Err)

	assert.Equal(t, "conv-1", record.Conversation.ConversationID)
	assert.Equal(t, entities.AISourceLode, record.Conversation.AISource)
	assert.Equal(t, "My renamed chat", record.Conversation.CustomTitle)
	assert.True(t, record.Conversation.Starred)

	require.Len(t, record.Messages, 2)
	require.NotNil(t, record.Messages[1].ParentID)
	assert.Equal(t, "m1", *record.Messages[1].ParentID)
	assert.Equal(t, 0.5, record.Messages[1].Weight)
}

func TestLodeAdapter_DefaultsWeightAndStatus(t *testing.T) {
	export := `{
		"lode_export_format_version": "1",
		"conversation": {"conversation_id": "conv-1"},
		"messages": [{"message_id": "m1", "role": "user", "content": "hi"}]
	}`

	adapter := &LodeAdapter{}
	stream, err := adapter.Open(strings.NewReader(export))
	require.NoError(t, err)
	defer stream.Close()

	records := readAll(t, stream)
	require.Len(t, records, 1)
	require.Len(t, records[0].Messages, 1)
	assert.Equal(t, 1.0, records[0].Messages[0].Weight)
	assert.Equal(t, "finished_successfully", records[0].Messages[0].Status)
}

func TestLodeAdapter_MissingVersionMarkerFails(t *testing.T) {
	adapter := &LodeAdapter{}
	_, err := adapter.Open(strings.NewReader(`{"conversation": {"conversation_id": "c"}}`))
	assert.Error(t, err)
}

func TestLodeAdapter_MissingConversationFails(t *testing.T) {
	adapter := &LodeAdapter{}
	_, err := adapter.Open(strings.NewReader(`{"lode_export_format_version": "1"}`))
	assert.Error(t, err)
}

func TestLodeAdapter_MissingConversationIDFails(t *testing.T) {
	adapter := &LodeAdapter{}
	_, err := adapter.Open(strings.NewReader(`{
		"lode_export_format_version": "1",
		"conversation": {"title": "no id"}
	}`))
	assert.Error(t, err)
}
