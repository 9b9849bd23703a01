package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type ReadReceiptRepository struct {
	db *gorm.DB
}

func NewReadReceiptRepository(db *gorm.DB) *ReadReceiptRepository {
	return &ReadReceiptRepository{db: db}
}

// AdvancePointer moves the member's read high-water mark to the given message
// and reconciles the receipt set, in one transaction. The pointer only moves
// when the target message is strictly newer (by created_at) than the currently
// tracked one, so out-of-order calls degrade to no-ops instead of regressing
// the mark. On a real advance, every foreign non-deleted message up to the
// target gains a receipt (existing receipts keep their original read_at; only
// the target's is refreshed), which keeps the receipt set and the pointer in
// agreement for unread counting. Returns whether the pointer actually
// advanced.
func (r *ReadReceiptRepository) AdvancePointer(chatID, userID, messageID uint, readAt time.Time) (bool, error) {
	advanced := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE chat_members
			SET last_read_message_id = ?, last_read_at = ?
			WHERE chat_id = ? AND user_id = ? AND deleted_at IS NULL
			  AND (
			    last_read_message_id IS NULL
			    OR (SELECT m.created_at FROM messages m WHERE m.id = chat_members.last_read_message_id)
			       < (SELECT m.created_at FROM messages m WHERE m.id = ?)
			  )
		`, messageID, readAt, chatID, userID, messageID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		advanced = true
		if err := tx.Exec(`
			INSERT INTO read_receipts (message_id, user_id, read_at, created_at)
			SELECT m.id, ?, ?, ?
			FROM messages m
			WHERE m.chat_id = ? AND m.sender_id <> ? AND m.deleted_at IS NULL
			  AND m.created_at <= (SELECT created_at FROM messages WHERE id = ?)
			ON CONFLICT (message_id, user_id) DO NOTHING
		`, userID, readAt, readAt, chatID, userID, messageID).Error; err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO read_receipts (message_id, user_id, read_at, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (message_id, user_id) DO UPDATE
			SET read_at = EXCLUDED.read_at, deleted_at = NULL
		`, messageID, userID, readAt, readAt).Error
	})
	return advanced, err
}

// ListByMessage is the raw receipt log for one message, newest read first.
// It is deliberately not filtered against read pointers.
func (r *ReadReceiptRepository) ListByMessage(messageID uint) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	err := r.db.Scopes(Alive).
		Where("message_id = ?", messageID).
		Preload("User").
		Order("read_at DESC, id DESC").
		Find(&receipts).Error
	return receipts, err
}

// ListByMessageIDs batch-loads active receipts for a page of messages.
func (r *ReadReceiptRepository) ListByMessageIDs(messageIDs []uint) ([]models.ReadReceipt, error) {
	var receipts []models.ReadReceipt
	if len(messageIDs) == 0 {
		return receipts, nil
	}
	err := r.db.Scopes(Alive).
		Where("message_id IN ?", messageIDs).
		Order("read_at DESC, id DESC").
		Find(&receipts).Error
	return receipts, err
}

// UnreadCount counts non-deleted messages in the chat that the user neither
// sent nor holds an active receipt for. The receipt set is the authoritative
// formulation; the pointer-based shortcut must agree with it.
func (r *ReadReceiptRepository) UnreadCount(chatID, userID uint) (int64, error) {
	var count int64
	err := r.db.Raw(`
		SELECT COUNT(*) FROM messages m
		WHERE m.chat_id = ? AND m.deleted_at IS NULL AND m.sender_id <> ?
		  AND NOT EXISTS (
		    SELECT 1 FROM read_receipts rr
		    WHERE rr.message_id = m.id AND rr.user_id = ? AND rr.deleted_at IS NULL
		  )
	`, chatID, userID, userID).Scan(&count).Error
	return count, err
}
