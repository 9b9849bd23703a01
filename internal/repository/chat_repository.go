package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) FindByID(id uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.Scopes(Alive).First(&chat, id).Error
	return &chat, err
}

// FindDirectChat returns the non-group chat both users are active members of.
func (r *ChatRepository) FindDirectChat(userA, userB uint) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.Scopes(Alive).
		Where("is_group = false").
		Where("id IN (?)", r.db.Model(&models.ChatMember{}).
			Select("chat_id").
			Where("user_id = ? AND deleted_at IS NULL", userA)).
		Where("id IN (?)", r.db.Model(&models.ChatMember{}).
			Select("chat_id").
			Where("user_id = ? AND deleted_at IS NULL", userB)).
		First(&chat).Error
	return &chat, err
}

// CreateDirectChat creates a 1-on-1 chat with both memberships in one
// transaction.
func (r *ChatRepository) CreateDirectChat(userA, userB uint) (*models.Chat, error) {
	chat := &models.Chat{IsGroup: false}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		members := []models.ChatMember{
			{ChatID: chat.ID, UserID: userA, Role: models.RoleUser},
			{ChatID: chat.ID, UserID: userB, Role: models.RoleUser},
		}
		return tx.Create(&members).Error
	})
	return chat, err
}

// CreateGroupChat creates a group chat, its owner membership and the initial
// member set in one transaction.
func (r *ChatRepository) CreateGroupChat(name string, ownerID uint, memberIDs []uint) (*models.Chat, error) {
	chat := &models.Chat{Name: &name, IsGroup: true}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		members := []models.ChatMember{{ChatID: chat.ID, UserID: ownerID, Role: models.RoleOwner}}
		for _, id := range memberIDs {
			if id == ownerID {
				continue
			}
			members = append(members, models.ChatMember{ChatID: chat.ID, UserID: id, Role: models.RoleUser})
		}
		return tx.Create(&members).Error
	})
	return chat, err
}

// FindMember returns the caller's active membership in a chat.
func (r *ChatRepository) FindMember(chatID, userID uint) (*models.ChatMember, error) {
	var member models.ChatMember
	err := r.db.Scopes(Alive).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&member).Error
	return &member, err
}

// FindMembers loads all active memberships of a chat with their users in one
// query. Listing paths call this exactly once and join in memory.
func (r *ChatRepository) FindMembers(chatID uint) ([]models.ChatMember, error) {
	var members []models.ChatMember
	err := r.db.Scopes(Alive).
		Where("chat_id = ?", chatID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// AddMember activates a membership: a previously removed row is restored in
// place so the (chat_id, user_id) pair stays unique across the lifecycle.
func (r *ChatRepository) AddMember(chatID, userID uint, role models.ChatRole) (*models.ChatMember, error) {
	var member models.ChatMember
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&member).Error
		switch {
		case err == nil:
			if !member.Deleted() {
				return gorm.ErrDuplicatedKey
			}
			return tx.Model(&member).Updates(map[string]interface{}{
				"deleted_at": nil,
				"role":       role,
				"joined_at":  time.Now(),
			}).Error
		case err == gorm.ErrRecordNotFound:
			member = models.ChatMember{ChatID: chatID, UserID: userID, Role: role}
			return tx.Create(&member).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return r.FindMember(chatID, userID)
}

func (r *ChatRepository) RemoveMember(chatID, userID uint) error {
	return r.db.Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, userID).
		Update("deleted_at", time.Now()).Error
}

func (r *ChatRepository) UpdateMemberRole(chatID, userID uint, role models.ChatRole) error {
	return r.db.Model(&models.ChatMember{}).
		Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, userID).
		Update("role", role).Error
}

// SwapOwner promotes newOwnerID to OWNER and demotes oldOwnerID to MODERATOR.
// Both updates commit together or neither does, preserving the single-owner
// invariant.
func (r *ChatRepository) SwapOwner(chatID, newOwnerID, oldOwnerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatMember{}).
			Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, newOwnerID).
			Update("role", models.RoleOwner)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.ChatMember{}).
			Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, oldOwnerID).
			Update("role", models.RoleModerator).Error
	})
}

// PromoteAndRemove hands ownership to the given member and removes the
// leaving owner in one transaction.
func (r *ChatRepository) PromoteAndRemove(chatID, promoteUserID, leavingUserID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ChatMember{}).
			Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, promoteUserID).
			Update("role", models.RoleOwner)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.ChatMember{}).
			Where("chat_id = ? AND user_id = ? AND deleted_at IS NULL", chatID, leavingUserID).
			Update("deleted_at", time.Now()).Error
	})
}

// SoftDeleteChat removes the chat and all remaining memberships together.
func (r *ChatRepository) SoftDeleteChat(chatID uint) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ChatMember{}).
			Where("chat_id = ? AND deleted_at IS NULL", chatID).
			Update("deleted_at", now).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ? AND deleted_at IS NULL", chatID).
			Update("deleted_at", now).Error
	})
}

func (r *ChatRepository) ActiveMemberCount(chatID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChatMember{}).
		Where("chat_id = ? AND deleted_at IS NULL", chatID).
		Count(&count).Error
	return count, err
}

// LongestTenuredMember returns the active member with the earliest joined_at,
// excluding the given user. Used to pick the successor when an owner leaves.
func (r *ChatRepository) LongestTenuredMember(chatID, excludeUserID uint) (*models.ChatMember, error) {
	var member models.ChatMember
	err := r.db.Scopes(Alive).
		Where("chat_id = ? AND user_id <> ?", chatID, excludeUserID).
		Order("joined_at ASC").
		First(&member).Error
	return &member, err
}

// ListUserChats returns the chats the user is an active member of, most
// recently active first.
func (r *ChatRepository) ListUserChats(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.Scopes(AliveIn("chats")).
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ? AND chat_members.deleted_at IS NULL", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	return chats, err
}

func (r *ChatRepository) UpdateName(chatID uint, name string) error {
	return r.db.Model(&models.Chat{}).
		Where("id = ? AND deleted_at IS NULL", chatID).
		Update("name", name).Error
}
