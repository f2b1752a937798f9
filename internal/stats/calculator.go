// Package stats computes per-conversation content statistics over the
// linearized message path.
package stats

import (
	"regexp"
	"strings"

	"github.com/lodeapp/lode/internal/entities"
)

var (
	urlPattern       = regexp.MustCompile(`(?i)https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
	codeBlockPattern = regexp.MustCompile("(?s)```.*?```")
)

// Stats are the derived counters for one conversation. Message and word
// counts feed the Conversation row; the rest is reporting detail.
type Stats struct {
	MessageCount          int `json:"message_count"`
	UserMessageCount      int `json:"user_message_count"`
	AssistantMessageCount int `json:"assistant_message_count"`
	SystemMessageCount    int `json:"system_message_count"`
	WordCount             int `json:"word_count"`
	CharacterCount        int `json:"character_count"`
	URLCount              int `json:"url_count"`
	CodeBlockCount        int `json:"code_block_count"`
}

// Calculate folds the ordered display-path messages into counters.
// Deterministic for a given path, so a re-import followed by a stats
// pass leaves the stored counts unchanged.
func Calculate(messages []entities.Message) Stats {
	var s Stats
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}

		s.MessageCount++
		switch msg.Role {
		case entities.RoleUser:
			s.UserMessageCount++
		case entities.RoleAssistant:
			s.AssistantMessageCount++
		case entities.RoleSystem:
			s.SystemMessageCount++
		}

		s.CharacterCount += len(msg.Content)
		s.WordCount += len(strings.Fields(msg.Content))
		s.URLCount += len(urlPattern.FindAllString(msg.Content, -1))
		s.CodeBlockCount += len(codeBlockPattern.FindAllString(msg.Content, -1))
	}
	return s
}
