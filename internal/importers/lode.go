package importers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lodeapp/lode/internal/entities"
)

// LodeAdapter parses the native round-trip format: one conversation per
// file, canonical field names, no graph reconstruction. The version
// marker distinguishes it from other providers' JSON.
type LodeAdapter struct{}

type lodeExport struct {
	FormatVersion string `json:"lode_export_format_version"`
	Conversation  *struct {
		ConversationID string  `json:"conversation_id"`
		Title          string  `json:"title"`
		CreateTime     float64 `json:"create_time"`
		UpdateTime     float64 `json:"update_time"`
		CustomTitle    string  `json:"custom_title"`
		Starred        bool    `json:"starred"`
	} `json:"conversation"`
	Messages []struct {
		MessageID  string  `json:"message_id"`
		ParentID   *string `json:"parent_id"`
		Role       string  `json:"role"`
		Content    string  `json:"content"`
		CreateTime float64 `json:"create_time"`
		Weight     float64 `json:"weight"`
		Status     string  `json:"status"`
	} `json:"messages"`
}

func (a *LodeAdapter) Open(r io.Reader) (RecordStream, error) {
	var export lodeExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("parse lode export: %w", err)
	}
	if export.FormatVersion == "" {
		return nil, fmt.Errorf("not a lode export: missing lode_export_format_version")
	}
	if export.Conversation == nil {
		return nil, fmt.Errorf("lode export missing conversation object")
	}
	if export.Conversation.ConversationID == "" {
		return nil, fmt.Errorf("lode export missing conversation_id")
	}

	return &lodeStream{export: &export}, nil
}

type lodeStream struct {
	export *lodeExport
	done   bool
}

func (s *lodeStream) Next() (*Record, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true

	conv := s.export.Conversation
	conversationID := conv.ConversationID

	messages := make([]entities.Message, 0, len(s.export.Messages))
	path := make([]string, 0, len(s.export.Messages))
	for _, msg := range s.export.Messages {
		if msg.MessageID == "" {
			continue
		}
		role := entities.Role(msg.Role)
		if role != entities.RoleUser && role != entities.RoleAssistant && role != entities.RoleSystem {
			role = mapRole(msg.Role)
		}
		weight := msg.Weight
		if weight == 0 {
			weight = 1.0
		}
		status := msg.Status
		if status == "" {
			status = "finished_successfully"
		}
		messages = append(messages, entities.Message{
			ConversationID: conversationID,
			MessageID:      msg.MessageID,
			ParentID:       msg.ParentID,
			Role:           role,
			Content:        msg.Content,
			CreateTime:     msg.CreateTime,
			Weight:         weight,
			Status:         status,
		})
		path = append(path, msg.MessageID)
	}

	return &Record{
		Conversation: entities.Conversation{
			ConversationID: conversationID,
			Title:          conv.Title,
			AISource:       entities.AISourceLode,
			CreateTime:     conv.CreateTime,
			UpdateTime:     conv.UpdateTime,
			CustomTitle:    conv.CustomTitle,
			Starred:        conv.Starred,
		},
		Messages: messages,
		Path:     path,
	}, nil
}

func (s *lodeStream) Close() error {
	return nil
}
