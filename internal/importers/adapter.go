// Package importers normalizes provider chat-history exports into a
// common (Conversation, ordered messages) shape.
//
// Each provider implements the Adapter interface over its own export
// format. Records stream one conversation at a time so an import job can
// report progress without holding the whole export in memory.
//
// Implementations:
//   - OpenAIAdapter (openai.go) - ChatGPT export, mapping graph format
//   - ClaudeAdapter (claude.go) - Claude export, flat chat_messages list
//   - LodeAdapter (lode.go)     - native round-trip format, one file per conversation
package importers

import (
	"errors"
	"io"

	"github.com/lodeapp/lode/internal/entities"
)

// ErrUnknownSource is returned when no adapter is registered for the
// requested source type.
var ErrUnknownSource = errors.New("unknown source type")

// Record is one normalized conversation ready for storage.
//
// Messages holds every message of the conversation, parent links intact.
// Path holds the MessageIDs of the linear display path, root first. For
// flat formats Path simply covers all messages in order; for graph
// formats it is the reconstructed current branch, and messages off the
// path are still persisted.
type Record struct {
	Conversation entities.Conversation
	Messages     []entities.Message
	Path         []string

	// Err is set instead of the fields above when this individual
	// record was malformed. The import continues past it.
	Err error
}

// PathMessages returns the messages on the display path, in path order.
func (r *Record) PathMessages() []entities.Message {
	byID := make(map[string]*entities.Message, len(r.Messages))
	for i := range r.Messages {
		byID[r.Messages[i].MessageID] = &r.Messages[i]
	}
	ordered := make([]entities.Message, 0, len(r.Path))
	for _, id := range r.Path {
		if msg, ok := byID[id]; ok {
			ordered = append(ordered, *msg)
		}
	}
	return ordered
}

// RecordStream yields normalized records one conversation at a time.
// Next returns io.EOF after the last record. A non-EOF error from Next
// means the stream itself broke and the import cannot continue.
type RecordStream interface {
	Next() (*Record, error)
	Close() error
}

// Adapter parses one provider's export format. Open must fail fast on a
// structurally invalid file (wrong schema, unparseable JSON) before any
// record is produced.
type Adapter interface {
	Open(r io.Reader) (RecordStream, error)
}

// mapRole converts a provider role name to the canonical role enum.
// Claude uses "human" for the user; anything that is neither user nor
// assistant (tool output, system notes) lands on system.
func mapRole(raw string) entities.Role {
	switch raw {
	case "user", "human":
		return entities.RoleUser
	case "assistant":
		return entities.RoleAssistant
	default:
		return entities.RoleSystem
	}
}
