package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// FindTriple loads the reaction row for (message, user, emoji) regardless of
// deletion state; re-adding a removed reaction restores this row.
func (r *ReactionRepository) FindTriple(messageID, userID uint, emoji string) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&reaction).Error
	return &reaction, err
}

func (r *ReactionRepository) Create(reaction *models.Reaction) error {
	return r.db.Create(reaction).Error
}

func (r *ReactionRepository) Restore(id uint) error {
	return r.db.Model(&models.Reaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"created_at": time.Now(),
		}).Error
}

func (r *ReactionRepository) SoftDelete(id uint) error {
	return r.db.Model(&models.Reaction{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now()).Error
}

// ListByMessageIDs batch-loads the active reactions for a page of messages.
func (r *ReactionRepository) ListByMessageIDs(messageIDs []uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	if len(messageIDs) == 0 {
		return reactions, nil
	}
	err := r.db.Scopes(Alive).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC, id ASC").
		Find(&reactions).Error
	return reactions, err
}
