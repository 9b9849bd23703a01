package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type PinRepository struct {
	db *gorm.DB
}

func NewPinRepository(db *gorm.DB) *PinRepository {
	return &PinRepository{db: db}
}

func (r *PinRepository) FindActive(chatID, messageID uint) (*models.PinnedMessage, error) {
	var pin models.PinnedMessage
	err := r.db.Scopes(Alive).
		Where("chat_id = ? AND message_id = ?", chatID, messageID).
		First(&pin).Error
	return &pin, err
}

// Pin activates a pin, restoring a previously removed row when one exists.
func (r *PinRepository) Pin(chatID, messageID, pinnedBy uint) (*models.PinnedMessage, error) {
	var pin models.PinnedMessage
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("chat_id = ? AND message_id = ?", chatID, messageID).First(&pin).Error
		switch {
		case err == nil:
			if !pin.Deleted() {
				return gorm.ErrDuplicatedKey
			}
			return tx.Model(&pin).Updates(map[string]interface{}{
				"deleted_at": nil,
				"pinned_by":  pinnedBy,
				"created_at": time.Now(),
			}).Error
		case err == gorm.ErrRecordNotFound:
			pin = models.PinnedMessage{ChatID: chatID, MessageID: messageID, PinnedBy: pinnedBy}
			return tx.Create(&pin).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return r.FindActive(chatID, messageID)
}

func (r *PinRepository) Unpin(chatID, messageID uint) error {
	return r.db.Model(&models.PinnedMessage{}).
		Where("chat_id = ? AND message_id = ? AND deleted_at IS NULL", chatID, messageID).
		Update("deleted_at", time.Now()).Error
}

func (r *PinRepository) ListByChat(chatID uint) ([]models.PinnedMessage, error) {
	var pins []models.PinnedMessage
	err := r.db.Scopes(Alive).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Find(&pins).Error
	return pins, err
}

// PinnedMessageIDs returns the set of pinned message ids in a chat for the
// enrichment batch join.
func (r *PinRepository) PinnedMessageIDs(chatID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.PinnedMessage{}).
		Where("chat_id = ? AND deleted_at IS NULL", chatID).
		Pluck("message_id", &ids).Error
	return ids, err
}
