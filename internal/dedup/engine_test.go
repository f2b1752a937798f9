package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodeapp/lode/internal/entities"
)

type fakeHashReader struct {
	hashes map[string]map[string]string
}

func (f *fakeHashReader) GetConversationHashes(conversationID string) (map[string]string, error) {
	stored, ok := f.hashes[conversationID]
	if !ok {
		return map[string]string{}, nil
	}
	return stored, nil
}

func message(id, role, content string) entities.Message {
	return entities.Message{
		MessageID: id,
		Role:      entities.Role(role),
		Content:   content,
	}
}

func TestEngine_Classify_AllNew(t *testing.T) {
	engine := NewEngine(&fakeHashReader{hashes: map[string]map[string]string{}})

	classifications, summary, err := engine.Classify("conv-1", []entities.Message{
		message("m1", "user", "hello"),
		message("m2", "assistant", "hi there"),
	})
	require.NoError(t, err)

	assert.Equal(t, []Classification{ClassificationNew, ClassificationNew}, classifications)
	assert.Equal(t, Summary{New: 2}, summary)
	assert.False(t, summary.AllDuplicate())
}

func TestEngine_Classify_CleanReimport(t *testing.T) {
	engine := NewEngine(&fakeHashReader{hashes: map[string]map[string]string{
		"conv-1": {
			"m1": Hash("user", "hello"),
			"m2": Hash("assistant", "hi there"),
		},
	}})

	classifications, summary, err := engine.Classify("conv-1", []entities.Message{
		message("m1", "user", "hello"),
		message("m2", "assistant", "hi there"),
	})
	require.NoError(t, err)

	assert.Equal(t, []Classification{ClassificationDuplicate, ClassificationDuplicate}, classifications)
	assert.Equal(t, Summary{Duplicates: 2}, summary)
	assert.True(t, summary.AllDuplicate())
}

func TestEngine_Classify_EditedMessageConflicts(t *testing.T) {
	engine := NewEngine(&fakeHashReader{hashes: map[string]map[string]string{
		"conv-1": {
			"m1": Hash("user", "original content"),
		},
	}})

	classifications, summary, err := engine.Classify("conv-1", []entities.Message{
		message("m1", "user", "edited content"),
	})
	require.NoError(t, err)

	assert.Equal(t, []Classification{ClassificationConflicting}, classifications)
	assert.Equal(t, Summary{Conflicting: 1}, summary)
	assert.False(t, summary.AllDuplicate())
}

func TestEngine_Classify_ScopedToConversation(t *testing.T) {
	// Same message id and content stored under a different conversation
	// must not count as a duplicate.
	engine := NewEngine(&fakeHashReader{hashes: map[string]map[string]string{
		"conv-other": {
			"m1": Hash("user", "hello"),
		},
	}})

	classifications, summary, err := engine.Classify("conv-1", []entities.Message{
		message("m1", "user", "hello"),
	})
	require.NoError(t, err)

	assert.Equal(t, []Classification{ClassificationNew}, classifications)
	assert.Equal(t, Summary{New: 1}, summary)
}

func TestEngine_Classify_MixedBatch(t *testing.T) {
	engine := NewEngine(&fakeHashReader{hashes: map[string]map[string]string{
		"conv-1": {
			"m1": Hash("user", "hello"),
			"m2": Hash("assistant", "old answer"),
		},
	}})

	_, summary, err := engine.Classify("conv-1", []entities.Message{
		message("m1", "user", "hello"),
		message("m2", "assistant", "new answer"),
		message("m3", "user", "follow-up"),
	})
	require.NoError(t, err)

	assert.Equal(t, Summary{New: 1, Duplicates: 1, Conflicting: 1}, summary)
	assert.False(t, summary.AllDuplicate())
}

func TestGroupCollisions(t *testing.T) {
	shared := Hash("user", "same content")
	rows := []entities.ContentHash{
		{ConversationID: "conv-1", MessageID: "m1", HashValue: shared},
		{ConversationID: "conv-2", MessageID: "m9", HashValue: shared},
		{ConversationID: "conv-1", MessageID: "m2", HashValue: Hash("user", "unique")},
	}

	groups := GroupCollisions(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, shared, groups[0].HashValue)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []Member{
		{ConversationID: "conv-1", MessageID: "m1"},
		{ConversationID: "conv-2", MessageID: "m9"},
	}, groups[0].Members)
}

func TestGroupCollisions_NoDuplicates(t *testing.T) {
	rows := []entities.ContentHash{
		{ConversationID: "conv-1", MessageID: "m1", HashValue: Hash("user", "a")},
		{ConversationID: "conv-1", MessageID: "m2", HashValue: Hash("user", "b")},
	}
	assert.Empty(t, GroupCollisions(rows))
}
