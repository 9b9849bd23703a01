package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	FindByIDs(ids []uint) ([]models.User, error)
	Update(user *models.User) error
	SetOnlineStatus(userID uint, isOnline bool, lastSeen time.Time) error
	SearchUsers(query string, limit int) ([]models.User, error)
}

// ChatRepositoryInterface defines the contract for chat and membership operations
type ChatRepositoryInterface interface {
	FindByID(id uint) (*models.Chat, error)
	FindDirectChat(userA, userB uint) (*models.Chat, error)
	CreateDirectChat(userA, userB uint) (*models.Chat, error)
	CreateGroupChat(name string, ownerID uint, memberIDs []uint) (*models.Chat, error)
	FindMember(chatID, userID uint) (*models.ChatMember, error)
	FindMembers(chatID uint) ([]models.ChatMember, error)
	AddMember(chatID, userID uint, role models.ChatRole) (*models.ChatMember, error)
	RemoveMember(chatID, userID uint) error
	UpdateMemberRole(chatID, userID uint, role models.ChatRole) error
	SwapOwner(chatID, newOwnerID, oldOwnerID uint) error
	PromoteAndRemove(chatID, promoteUserID, leavingUserID uint) error
	SoftDeleteChat(chatID uint) error
	ActiveMemberCount(chatID uint) (int64, error)
	LongestTenuredMember(chatID, excludeUserID uint) (*models.ChatMember, error)
	ListUserChats(userID uint) ([]models.Chat, error)
	UpdateName(chatID uint, name string) error
}

// MessageRepositoryInterface defines the contract for message ledger operations
type MessageRepositoryInterface interface {
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindByIDs(ids []uint) ([]models.Message, error)
	FindPage(chatID uint, limit, offset int) ([]models.Message, error)
	CountByChat(chatID uint) (int64, error)
	FindReplies(messageID uint) ([]models.Message, error)
	Search(chatID uint, query string, limit, offset int) ([]models.Message, error)
	Update(message *models.Message) error
	SoftDelete(messageID uint) error
	LatestInChat(chatID uint) (*models.Message, error)
}

// ReactionRepositoryInterface defines the contract for reaction operations
type ReactionRepositoryInterface interface {
	FindTriple(messageID, userID uint, emoji string) (*models.Reaction, error)
	Create(reaction *models.Reaction) error
	Restore(id uint) error
	SoftDelete(id uint) error
	ListByMessageIDs(messageIDs []uint) ([]models.Reaction, error)
}

// ReadReceiptRepositoryInterface defines the contract for read-state operations
type ReadReceiptRepositoryInterface interface {
	AdvancePointer(chatID, userID, messageID uint, readAt time.Time) (bool, error)
	ListByMessage(messageID uint) ([]models.ReadReceipt, error)
	ListByMessageIDs(messageIDs []uint) ([]models.ReadReceipt, error)
	UnreadCount(chatID, userID uint) (int64, error)
}

// PinRepositoryInterface defines the contract for pinned-message operations
type PinRepositoryInterface interface {
	FindActive(chatID, messageID uint) (*models.PinnedMessage, error)
	Pin(chatID, messageID, pinnedBy uint) (*models.PinnedMessage, error)
	Unpin(chatID, messageID uint) error
	ListByChat(chatID uint) ([]models.PinnedMessage, error)
	PinnedMessageIDs(chatID uint) ([]uint, error)
}

// FriendRepositoryInterface defines the contract for friendship operations
type FriendRepositoryInterface interface {
	CreateInvite(invite *models.FriendInvite) error
	FindInviteByID(id uint) (*models.FriendInvite, error)
	FindPendingBetween(userA, userB uint) (*models.FriendInvite, error)
	Accept(inviteID uint) (*models.Friendship, error)
	UpdateInviteStatus(inviteID uint, status models.InviteStatus) error
	FindFriendship(userA, userB uint) (*models.Friendship, error)
	RemoveFriendship(userA, userB uint) error
	ListFriends(userID uint) ([]models.User, error)
	ListPendingInvites(userID uint) ([]models.FriendInvite, error)
}
