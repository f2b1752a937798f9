// Package search keeps the SQLite FTS5 full-text index structurally
// aligned with the primary store.
//
// The index uses external-content FTS5 tables over messages and
// conversations, maintained by AFTER INSERT/UPDATE/DELETE triggers. The
// trigger runs inside the same transaction as the primary write, so no
// write path can update the store and skip the index, and the index is
// never touched without a primary change. Query parsing and ranking are
// the engine's; this package only guarantees structural consistency.
package search

import (
	"fmt"

	"gorm.io/gorm"
)

// Index synchronizes and queries the full-text index.
type Index struct {
	db *gorm.DB
}

// NewIndex wraps the primary store's connection.
func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

var messageTriggers = []string{
	`CREATE TRIGGER messages_fts_insert AFTER INSERT ON messages BEGIN
		INSERT INTO messages_fts(rowid, conversation_id, message_id, role, content, create_time)
		VALUES (new.id, new.conversation_id, new.message_id, new.role, new.content, new.create_time);
	END`,
	`CREATE TRIGGER messages_fts_delete AFTER DELETE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, conversation_id, message_id, role, content, create_time)
		VALUES ('delete', old.id, old.conversation_id, old.message_id, old.role, old.content, old.create_time);
	END`,
	`CREATE TRIGGER messages_fts_update AFTER UPDATE ON messages BEGIN
		INSERT INTO messages_fts(messages_fts, rowid, conversation_id, message_id, role, content, create_time)
		VALUES ('delete', old.id, old.conversation_id, old.message_id, old.role, old.content, old.create_time);
		INSERT INTO messages_fts(rowid, conversation_id, message_id, role, content, create_time)
		VALUES (new.id, new.conversation_id, new.message_id, new.role, new.content, new.create_time);
	END`,
}

var conversationTriggers = []string{
	`CREATE TRIGGER conversations_fts_insert AFTER INSERT ON conversations BEGIN
		INSERT INTO conversations_fts(rowid, conversation_id, title, create_time)
		VALUES (new.id, new.conversation_id, COALESCE(new.title, ''), new.create_time);
	END`,
	`CREATE TRIGGER conversations_fts_delete AFTER DELETE ON conversations BEGIN
		INSERT INTO conversations_fts(conversations_fts, rowid, conversation_id, title, create_time)
		VALUES ('delete', old.id, old.conversation_id, COALESCE(old.title, ''), old.create_time);
	END`,
	`CREATE TRIGGER conversations_fts_update AFTER UPDATE ON conversations BEGIN
		INSERT INTO conversations_fts(conversations_fts, rowid, conversation_id, title, create_time)
		VALUES ('delete', old.id, old.conversation_id, COALESCE(old.title, ''), old.create_time);
		INSERT INTO conversations_fts(rowid, conversation_id, title, create_time)
		VALUES (new.id, new.conversation_id, COALESCE(new.title, ''), new.create_time);
	END`,
}

// EnsureSchema creates the FTS5 virtual tables and (re)installs the sync
// triggers, then rebuilds both indexes from their content tables so any
// rows written while triggers were absent or wrong are picked up.
//
// External-content tables must be maintained with the special 'delete'
// inserts, never plain DELETE FROM, or the index accumulates orphan
// rowids that surface as false positives.
func (i *Index) EnsureSchema() error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
			conversation_id UNINDEXED,
			message_id UNINDEXED,
			role UNINDEXED,
			content,
			create_time UNINDEXED,
			content='messages',
			content_rowid='id'
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS conversations_fts USING fts5(
			conversation_id UNINDEXED,
			title,
			create_time UNINDEXED,
			content='conversations',
			content_rowid='id'
		)`,
		"DROP TRIGGER IF EXISTS messages_fts_insert",
		"DROP TRIGGER IF EXISTS messages_fts_delete",
		"DROP TRIGGER IF EXISTS messages_fts_update",
		"DROP TRIGGER IF EXISTS conversations_fts_insert",
		"DROP TRIGGER IF EXISTS conversations_fts_delete",
		"DROP TRIGGER IF EXISTS conversations_fts_update",
	}
	stmts = append(stmts, messageTriggers...)
	stmts = append(stmts, conversationTriggers...)

	for _, stmt := range stmts {
		if err := i.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install fts schema: %w", err)
		}
	}

	return i.Rebuild()
}

// Rebuild drops and regenerates both indexes from the primary tables.
// Recovery path for drift; afterwards the row-count invariant holds
// again by construction.
func (i *Index) Rebuild() error {
	if err := i.db.Exec("INSERT INTO messages_fts(messages_fts) VALUES('rebuild')").Error; err != nil {
		return fmt.Errorf("rebuild messages index: %w", err)
	}
	if err := i.db.Exec("INSERT INTO conversations_fts(conversations_fts) VALUES('rebuild')").Error; err != nil {
		return fmt.Errorf("rebuild conversations index: %w", err)
	}
	return nil
}

// RowCounts returns (index rows, primary rows) for the given entity.
type RowCounts struct {
	Index   int64
	Primary int64
}

// MessageRowCounts compares the message index against the messages table.
func (i *Index) MessageRowCounts() (RowCounts, error) {
	return i.rowCounts("messages_fts", "messages")
}

// ConversationRowCounts compares the conversation index against the
// conversations table.
func (i *Index) ConversationRowCounts() (RowCounts, error) {
	return i.rowCounts("conversations_fts", "conversations")
}

func (i *Index) rowCounts(indexTable, primaryTable string) (RowCounts, error) {
	var counts RowCounts
	if err := i.db.Raw("SELECT COUNT(*) FROM " + indexTable).Scan(&counts.Index).Error; err != nil {
		return counts, fmt.Errorf("count %s: %w", indexTable, err)
	}
	if err := i.db.Raw("SELECT COUNT(*) FROM " + primaryTable).Scan(&counts.Primary).Error; err != nil {
		return counts, fmt.Errorf("count %s: %w", primaryTable, err)
	}
	return counts, nil
}

// Verify checks the row-count invariant for both entity types.
func (i *Index) Verify() error {
	for _, check := range []struct {
		name string
		fn   func() (RowCounts, error)
	}{
		{"messages", i.MessageRowCounts},
		{"conversations", i.ConversationRowCounts},
	} {
		counts, err := check.fn()
		if err != nil {
			return err
		}
		if counts.Index != counts.Primary {
			return fmt.Errorf("%s index out of sync: %d indexed, %d stored", check.name, counts.Index, counts.Primary)
		}
	}
	return nil
}

// MessageMatch is one full-text hit mapped back to its primary record.
type MessageMatch struct {
	ConversationID string  `json:"conversation_id"`
	MessageID      string  `json:"message_id"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	CreateTime     float64 `json:"create_time"`
}

// SearchMessages runs an FTS5 MATCH query. Query syntax and ranking are
// delegated to the engine.
func (i *Index) SearchMessages(query string, limit int) ([]MessageMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	var matches []MessageMatch
	err := i.db.Raw(`
		SELECT conversation_id, message_id, role, content, create_time
		FROM messages_fts
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit).Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return matches, nil
}

// ConversationMatch is one title hit.
type ConversationMatch struct {
	ConversationID string  `json:"conversation_id"`
	Title          string  `json:"title"`
	CreateTime     float64 `json:"create_time"`
}

// SearchConversations runs an FTS5 MATCH query over titles.
func (i *Index) SearchConversations(query string, limit int) ([]ConversationMatch, error) {
	if limit <= 0 {
		limit = 50
	}
	var matches []ConversationMatch
	err := i.db.Raw(`
		SELECT conversation_id, title, create_time
		FROM conversations_fts
		WHERE conversations_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit).Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("search conversations: %w", err)
	}
	return matches, nil
}
