// Package conversations provides database operations for conversation,
// message, and content-hash management.
//
// # Interface Implementation
//
//	var _ dedup.HashReader = (*Repository)(nil)
package conversations

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/lodeapp/lode/internal/dedup"
	"github.com/lodeapp/lode/internal/entities"
)

// Repository handles all conversation and message database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new conversations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByConversationID retrieves a conversation by its natural key, with
// messages ordered by source timestamp.
func (r *Repository) GetByConversationID(conversationID string) (*entities.Conversation, error) {
	var conv entities.Conversation
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("create_time ASC, id ASC")
	}).Where("conversation_id = ?", conversationID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// Exists reports whether a conversation with the natural key is stored.
func (r *Repository) Exists(conversationID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count > 0, err
}

// ListConversationIDs returns all stored natural keys, oldest first.
// Used by the reindex and vector-index jobs to walk the store.
func (r *Repository) ListConversationIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&entities.Conversation{}).
		Order("id ASC").
		Pluck("conversation_id", &ids).Error
	return ids, err
}

// InsertConversation commits a new conversation, its messages, and their
// content hashes as one transaction. A crash mid-import leaves earlier
// conversations intact and this one entirely absent, never half-written.
func (r *Repository) InsertConversation(conv *entities.Conversation, messages []entities.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return fmt.Errorf("insert conversation %s: %w", conv.ConversationID, err)
		}
		return insertMessagesWithHashes(tx, conv.ConversationID, messages)
	})
}

// ReplaceConversation re-imports an existing conversation: source fields
// are refreshed, messages and hashes are replaced wholesale, and the
// user-owned custom_title/starred fields are left untouched.
func (r *Repository) ReplaceConversation(conv *entities.Conversation, messages []entities.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"title":       conv.Title,
			"ai_source":   conv.AISource,
			"create_time": conv.CreateTime,
			"update_time": conv.UpdateTime,
		}
		res := tx.Model(&entities.Conversation{}).
			Where("conversation_id = ?", conv.ConversationID).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update conversation %s: %w", conv.ConversationID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("update conversation %s: %w", conv.ConversationID, gorm.ErrRecordNotFound)
		}

		if err := tx.Where("conversation_id = ?", conv.ConversationID).
			Delete(&entities.Message{}).Error; err != nil {
			return fmt.Errorf("clear messages for %s: %w", conv.ConversationID, err)
		}
		if err := tx.Where("conversation_id = ?", conv.ConversationID).
			Delete(&entities.ContentHash{}).Error; err != nil {
			return fmt.Errorf("clear hashes for %s: %w", conv.ConversationID, err)
		}

		return insertMessagesWithHashes(tx, conv.ConversationID, messages)
	})
}

func insertMessagesWithHashes(tx *gorm.DB, conversationID string, messages []entities.Message) error {
	for i := range messages {
		messages[i].ConversationID = conversationID
		if err := tx.Create(&messages[i]).Error; err != nil {
			return fmt.Errorf("insert message %s: %w", messages[i].MessageID, err)
		}
		hash := entities.ContentHash{
			ConversationID: conversationID,
			MessageID:      messages[i].MessageID,
			HashValue:      dedup.Hash(string(messages[i].Role), messages[i].Content),
		}
		if err := tx.Create(&hash).Error; err != nil {
			return fmt.Errorf("insert content hash for %s: %w", messages[i].MessageID, err)
		}
	}
	return nil
}

// UpdateStats stores the recomputed message and word counts.
func (r *Repository) UpdateStats(conversationID string, messageCount, wordCount int) error {
	return r.db.Model(&entities.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Updates(map[string]any{
			"message_count": messageCount,
			"word_count":    wordCount,
		}).Error
}

// GetConversationHashes returns message_id -> hash_value for one
// conversation's stored content hashes.
func (r *Repository) GetConversationHashes(conversationID string) (map[string]string, error) {
	var rows []entities.ContentHash
	err := r.db.Where("conversation_id = ?", conversationID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(rows))
	for _, row := range rows {
		hashes[row.MessageID] = row.HashValue
	}
	return hashes, nil
}

// BackfillHashes recomputes content hashes for messages that have none,
// returning the number of rows created. Used by the maintenance task.
func (r *Repository) BackfillHashes() (int64, error) {
	var missing []entities.Message
	err := r.db.
		Joins("LEFT JOIN content_hashes ON content_hashes.conversation_id = messages.conversation_id AND content_hashes.message_id = messages.message_id").
		Where("content_hashes.id IS NULL").
		Find(&missing).Error
	if err != nil {
		return 0, fmt.Errorf("find unhashed messages: %w", err)
	}

	var created int64
	for _, msg := range missing {
		hash := entities.ContentHash{
			ConversationID: msg.ConversationID,
			MessageID:      msg.MessageID,
			HashValue:      dedup.Hash(string(msg.Role), msg.Content),
		}
		if err := r.db.Create(&hash).Error; err != nil {
			return created, fmt.Errorf("backfill hash for %s: %w", msg.MessageID, err)
		}
		created++
	}
	return created, nil
}

// FindDuplicateMessages scans stored hashes and groups collisions for
// reporting. Read-only: the engine never deletes or merges.
func (r *Repository) FindDuplicateMessages() ([]dedup.DuplicateGroup, error) {
	var rows []entities.ContentHash
	err := r.db.
		Where("hash_value IN (?)",
			r.db.Model(&entities.ContentHash{}).
				Select("hash_value").
				Group("hash_value").
				Having("COUNT(*) > 1"),
		).
		Order("hash_value, conversation_id, message_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("scan duplicate hashes: %w", err)
	}
	return dedup.GroupCollisions(rows), nil
}

// FindDuplicateConversations groups conversations whose full content
// hashes to the same digest: content of all messages ordered by
// timestamp, joined with single spaces, then hashed like any message.
func (r *Repository) FindDuplicateConversations() ([]dedup.DuplicateGroup, error) {
	ids, err := r.ListConversationIDs()
	if err != nil {
		return nil, err
	}

	rows := make([]entities.ContentHash, 0, len(ids))
	for _, id := range ids {
		var contents []string
		err := r.db.Model(&entities.Message{}).
			Where("conversation_id = ? AND content != ''", id).
			Order("create_time ASC, id ASC").
			Pluck("content", &contents).Error
		if err != nil {
			return nil, fmt.Errorf("load contents for %s: %w", id, err)
		}
		rows = append(rows, entities.ContentHash{
			ConversationID: id,
			HashValue:      dedup.Hash("", strings.Join(contents, " ")),
		})
	}
	return dedup.GroupCollisions(rows), nil
}

// CountConversations returns the number of stored conversations.
func (r *Repository) CountConversations() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Conversation{}).Count(&count).Error
	return count, err
}

// CountMessages returns the number of stored messages.
func (r *Repository) CountMessages() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Message{}).Count(&count).Error
	return count, err
}

// SetStarred toggles the user-owned starred flag.
func (r *Repository) SetStarred(conversationID string, starred bool) error {
	return r.updateUserField(conversationID, "starred", starred)
}

// SetCustomTitle sets the user-owned display title.
func (r *Repository) SetCustomTitle(conversationID, title string) error {
	return r.updateUserField(conversationID, "custom_title", title)
}

func (r *Repository) updateUserField(conversationID, column string, value any) error {
	res := r.db.Model(&entities.Conversation{}).
		Where("conversation_id = ?", conversationID).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IsNotFound reports whether err is the store's record-not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

var _ dedup.HashReader = (*Repository)(nil)
