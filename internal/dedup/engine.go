package dedup

import (
	"fmt"

	"github.com/lodeapp/lode/internal/entities"
)

// Classification of a single incoming message against stored hashes.
type Classification string

const (
	ClassificationNew         Classification = "new"
	ClassificationDuplicate   Classification = "duplicate"
	ClassificationConflicting Classification = "conflicting"
)

// HashReader provides read access to stored content hashes.
// Implemented by the conversations repository.
type HashReader interface {
	// GetConversationHashes returns message_id -> hash_value for all
	// stored hashes of one conversation.
	GetConversationHashes(conversationID string) (map[string]string, error)
}

// Summary aggregates per-message classifications for one conversation.
type Summary struct {
	New         int
	Duplicates  int
	Conflicting int
}

// AllDuplicate reports whether every incoming message was already stored
// with an identical fingerprint, i.e. a clean re-import.
func (s Summary) AllDuplicate() bool {
	return s.New == 0 && s.Conflicting == 0 && s.Duplicates > 0
}

// Engine classifies incoming messages as new, duplicate, or conflicting
// by comparing fingerprints against stored hashes.
type Engine struct {
	hashes HashReader
}

func NewEngine(hashes HashReader) *Engine {
	return &Engine{hashes: hashes}
}

// Classify compares each incoming message against the conversation's
// stored hashes. A message whose fingerprint matches a stored one is a
// duplicate; a message whose id is stored under a different fingerprint
// is conflicting (the source edited it); anything else is new.
// Read-only: never mutates stored data.
func (e *Engine) Classify(conversationID string, messages []entities.Message) ([]Classification, Summary, error) {
	stored, err := e.hashes.GetConversationHashes(conversationID)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("load stored hashes for %s: %w", conversationID, err)
	}

	classifications := make([]Classification, len(messages))
	var summary Summary

	for i, msg := range messages {
		fingerprint := Hash(string(msg.Role), msg.Content)

		existing, known := stored[msg.MessageID]
		switch {
		case known && existing == fingerprint:
			classifications[i] = ClassificationDuplicate
			summary.Duplicates++
		case known:
			classifications[i] = ClassificationConflicting
			summary.Conflicting++
		default:
			classifications[i] = ClassificationNew
			summary.New++
		}
	}

	return classifications, summary, nil
}

// DuplicateGroup is a set of stored messages sharing one content hash.
type DuplicateGroup struct {
	HashValue string   `json:"hash_value"`
	Count     int      `json:"count"`
	Members   []Member `json:"members"`
}

// Member identifies one message inside a duplicate group.
type Member struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// GroupCollisions folds a hash-ordered scan of stored hashes into
// duplicate groups, keeping only hashes with more than one member.
// Reporting only; deletion or merging is an explicit separate operation.
func GroupCollisions(rows []entities.ContentHash) []DuplicateGroup {
	byHash := make(map[string][]Member)
	order := make([]string, 0)

	for _, row := range rows {
		if _, seen := byHash[row.HashValue]; !seen {
			order = append(order, row.HashValue)
		}
		byHash[row.HashValue] = append(byHash[row.HashValue], Member{
			ConversationID: row.ConversationID,
			MessageID:      row.MessageID,
		})
	}

	groups := make([]DuplicateGroup, 0)
	for _, hash := range order {
		members := byHash[hash]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			HashValue: hash,
			Count:     len(members),
			Members:   members,
		})
	}
	return groups
}
