package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists the message and bumps the chat's updated_at in one
// transaction so chat-list ordering follows the newest message.
func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", message.ChatID).
			Update("updated_at", time.Now()).Error
	})
}

// FindByID loads a message regardless of deletion state: deleted rows stay
// addressable for reply threads and provenance.
func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	return &message, err
}

func (r *MessageRepository) FindByIDs(ids []uint) ([]models.Message, error) {
	var messages []models.Message
	if len(ids) == 0 {
		return messages, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&messages).Error
	return messages, err
}

// FindPage fetches messages ordered oldest first. Callers pass limit+1 to
// detect a further page without a second query.
func (r *MessageRepository) FindPage(chatID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

// CountByChat counts every retained message of the chat. Deleted messages
// remain part of the sequence (they render blanked), so they are counted.
func (r *MessageRepository) CountByChat(chatID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("chat_id = ?", chatID).
		Count(&count).Error
	return count, err
}

func (r *MessageRepository) FindReplies(messageID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("reply_to_id = ?", messageID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

// Search matches non-deleted message content case-insensitively, newest first.
func (r *MessageRepository) Search(chatID uint, query string, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Scopes(Alive).
		Where("chat_id = ? AND content ILIKE ?", chatID, "%"+query+"%").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) Update(message *models.Message) error {
	return r.db.Save(message).Error
}

// SoftDelete blanks the content and stamps deleted_at; the row survives so
// reply threads stay navigable.
func (r *MessageRepository) SoftDelete(messageID uint) error {
	return r.db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", messageID).
		Updates(map[string]interface{}{
			"content":    "",
			"deleted_at": time.Now(),
		}).Error
}

// LatestInChat returns the newest message of a chat (deleted included, it
// still occupies the tail position) or gorm.ErrRecordNotFound.
func (r *MessageRepository) LatestInChat(chatID uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	return &message, err
}
