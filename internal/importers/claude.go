package importers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lodeapp/lode/internal/entities"
)

// ClaudeAdapter parses Claude exports: a JSON array of conversations
// with a flat chat_messages list. Messages are already linear, so the
// display path covers every message in export order.
type ClaudeAdapter struct{}

type claudeMessage struct {
	UUID      string `json:"uuid"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	Content   []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type claudeConversation struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	Summary      string          `json:"summary"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

func (a *ClaudeAdapter) Open(r io.Reader) (RecordStream, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse claude export: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("parse claude export: expected top-level array, got %v", tok)
	}

	return &claudeStream{dec: dec}, nil
}

type claudeStream struct {
	dec *json.Decoder
}

func (s *claudeStream) Next() (*Record, error) {
	if !s.dec.More() {
		return nil, io.EOF
	}

	var conv claudeConversation
	if err := s.dec.Decode(&conv); err != nil {
		return nil, fmt.Errorf("decode claude conversation: %w", err)
	}

	return normalizeClaude(&conv), nil
}

func (s *claudeStream) Close() error {
	return nil
}

func normalizeClaude(conv *claudeConversation) *Record {
	if conv.UUID == "" {
		return &Record{Err: fmt.Errorf("claude conversation missing uuid")}
	}

	title := conv.Name
	if title == "" {
		title = conv.Summary
		if len(title) > 100 {
			title = title[:100]
		}
	}

	messages := make([]entities.Message, 0, len(conv.ChatMessages))
	path := make([]string, 0, len(conv.ChatMessages))

	for _, msg := range conv.ChatMessages {
		text := claudeMessageText(msg)
		if strings.TrimSpace(text) == "" {
			continue
		}
		messages = append(messages, entities.Message{
			ConversationID: conv.UUID,
			MessageID:      msg.UUID,
			ParentID:       nil,
			Role:           mapRole(msg.Sender),
			Content:        text,
			CreateTime:     parseISOTime(msg.CreatedAt),
			Weight:         1.0,
			Status:         "finished_successfully",
		})
		path = append(path, msg.UUID)
	}

	if len(messages) == 0 {
		return &Record{Err: fmt.Errorf("claude conversation %s has no messages", conv.UUID)}
	}

	return &Record{
		Conversation: entities.Conversation{
			ConversationID: conv.UUID,
			Title:          title,
			AISource:       entities.AISourceClaude,
			CreateTime:     parseISOTime(conv.CreatedAt),
			UpdateTime:     parseISOTime(conv.UpdatedAt),
		},
		Messages: messages,
		Path:     path,
	}
}

// claudeMessageText prefers the top-level text field and falls back to
// joining the text blocks of the content array.
func claudeMessageText(msg claudeMessage) string {
	if strings.TrimSpace(msg.Text) != "" {
		return msg.Text
	}
	parts := make([]string, 0, len(msg.Content))
	for _, item := range msg.Content {
		if item.Type == "text" && item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseISOTime converts a Claude ISO timestamp to unix seconds, 0 when
// absent or unparseable.
func parseISOTime(value string) float64 {
	if value == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05.999999Z07:00", value)
		if err != nil {
			return 0
		}
	}
	return float64(t.UnixNano()) / float64(time.Second)
}
