package importers

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lodeapp/lode/internal/entities"
)

// OpenAIAdapter parses ChatGPT exports: a JSON array of conversations,
// each carrying its messages as a "mapping" graph of nodes linked by
// parent/children ids. Edits and regenerations create branches; the
// export optionally names the current leaf via "current_node".
type OpenAIAdapter struct{}

type openAINode struct {
	ID       string         `json:"id"`
	Message  *openAIMessage `json:"message"`
	Parent   *string        `json:"parent"`
	Children []string       `json:"children"`
}

type openAIMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content    json.RawMessage `json:"content"`
	CreateTime *float64        `json:"create_time"`
	Weight     *float64        `json:"weight"`
	Status     string          `json:"status"`
}

type openAIConversation struct {
	ConversationID string                `json:"conversation_id"`
	AltID          string                `json:"id"`
	Title          string                `json:"title"`
	CreateTime     float64               `json:"create_time"`
	UpdateTime     float64               `json:"update_time"`
	CurrentNode    string                `json:"current_node"`
	Mapping        map[string]openAINode `json:"mapping"`
}

func (a *OpenAIAdapter) Open(r io.Reader) (RecordStream, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse openai export: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("parse openai export: expected top-level array, got %v", tok)
	}

	return &openAIStream{dec: dec}, nil
}

type openAIStream struct {
	dec *json.Decoder
}

func (s *openAIStream) Next() (*Record, error) {
	if !s.dec.More() {
		return nil, io.EOF
	}

	var conv openAIConversation
	if err := s.dec.Decode(&conv); err != nil {
		// A record that does not even decode as an object means the
		// array itself is broken; the stream cannot recover.
		return nil, fmt.Errorf("decode openai conversation: %w", err)
	}

	return normalizeOpenAI(&conv), nil
}

func (s *openAIStream) Close() error {
	return nil
}

func normalizeOpenAI(conv *openAIConversation) *Record {
	conversationID := conv.ConversationID
	if conversationID == "" {
		conversationID = conv.AltID
	}
	if conversationID == "" {
		return &Record{Err: fmt.Errorf("openai conversation missing conversation_id")}
	}

	messages := make([]entities.Message, 0, len(conv.Mapping))
	included := make(map[string]bool, len(conv.Mapping))

	for nodeID, node := range conv.Mapping {
		if node.Message == nil {
			continue
		}
		text := openAIContentText(node.Message.Content)
		if strings.TrimSpace(text) == "" {
			continue
		}

		var createTime float64
		if node.Message.CreateTime != nil {
			createTime = *node.Message.CreateTime
		}
		weight := 1.0
		if node.Message.Weight != nil {
			weight = *node.Message.Weight
		}

		messages = append(messages, entities.Message{
			ConversationID: conversationID,
			MessageID:      nodeID,
			ParentID:       node.Parent,
			Role:           mapRole(node.Message.Author.Role),
			Content:        text,
			CreateTime:     createTime,
			Weight:         weight,
			Status:         node.Message.Status,
		})
		included[nodeID] = true
	}

	path := linearizeMapping(conv.Mapping, conv.CurrentNode, included)

	return &Record{
		Conversation: entities.Conversation{
			ConversationID: conversationID,
			Title:          conv.Title,
			AISource:       entities.AISourceOpenAI,
			CreateTime:     conv.CreateTime,
			UpdateTime:     conv.UpdateTime,
		},
		Messages: messages,
		Path:     path,
	}
}

// openAIContentText joins content.parts into a single newline-separated
// string, dropping empty parts. Older exports carry content as a bare
// array of strings instead of an object.
func openAIContentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var obj struct {
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Parts != nil {
		return joinParts(obj.Parts)
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return joinParts(list)
	}

	return ""
}

func joinParts(parts []json.RawMessage) string {
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err != nil {
			// Multimodal parts (images, attachments) are objects; only
			// text parts contribute to the normalized content.
			continue
		}
		if strings.TrimSpace(s) != "" {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}

// linearizeMapping reconstructs the conversation as last edited: resolve
// the current leaf, walk parent links to the root, reverse, and keep the
// nodes that carry actual content. When the export omits current_node,
// the leaf is found by always following the most recently created child
// from the root, ties broken by node id so the walk is deterministic.
func linearizeMapping(mapping map[string]openAINode, currentNode string, included map[string]bool) []string {
	if len(mapping) == 0 {
		return nil
	}

	leaf := currentNode
	if _, ok := mapping[leaf]; leaf == "" || !ok {
		leaf = findCurrentLeaf(mapping)
	}
	if leaf == "" {
		return nil
	}

	// Walk to the root. The visited set guards against malformed
	// exports with parent cycles.
	reversed := make([]string, 0, len(mapping))
	visited := make(map[string]bool, len(mapping))
	for id := leaf; id != "" && !visited[id]; {
		visited[id] = true
		node, ok := mapping[id]
		if !ok {
			break
		}
		if included[id] {
			reversed = append(reversed, id)
		}
		if node.Parent == nil {
			break
		}
		id = *node.Parent
	}

	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}

func findCurrentLeaf(mapping map[string]openAINode) string {
	root := ""
	rootIDs := make([]string, 0, 1)
	for id, node := range mapping {
		if node.Parent == nil {
			rootIDs = append(rootIDs, id)
		}
	}
	if len(rootIDs) == 0 {
		return ""
	}
	sort.Strings(rootIDs)
	root = rootIDs[0]

	current := root
	visited := make(map[string]bool, len(mapping))
	for !visited[current] {
		visited[current] = true
		node := mapping[current]
		next := ""
		var nextTime float64 = -1
		for _, childID := range node.Children {
			child, ok := mapping[childID]
			if !ok || visited[childID] {
				continue
			}
			t := 0.0
			if child.Message != nil && child.Message.CreateTime != nil {
				t = *child.Message.CreateTime
			}
			if t > nextTime || (t == nextTime && childID > next) {
				next = childID
				nextTime = t
			}
		}
		if next == "" {
			return current
		}
		current = next
	}
	return current
}
