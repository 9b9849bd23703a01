package models

import (
	"time"
)

type ChatRole string

const (
	RoleUser      ChatRole = "USER"
	RoleModerator ChatRole = "MODERATOR"
	RoleOwner     ChatRole = "OWNER"
)

type Chat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDelete

	// Name is set for group chats only; 1-on-1 chats are rendered by peer name.
	Name    *string `gorm:"size:100" json:"name"`
	IsGroup bool    `gorm:"default:false" json:"is_group"`

	Members []ChatMember `gorm:"foreignKey:ChatID" json:"-"`
}

// ChatMember is one user's membership in one chat. At most one non-deleted
// row exists per (chat_id, user_id); removal from a chat soft-deletes the row.
//
// LastReadMessageID is the authoritative read high-water mark for the user in
// this chat. It only ever moves forward (to a message with a strictly newer
// created_at) and is the source of truth that read receipts are filtered
// against when serializing a message's visible readers.
type ChatMember struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	ChatID   uint      `gorm:"index:idx_chat_member,priority:1;not null" json:"chat_id"`
	UserID   uint      `gorm:"index:idx_chat_member,priority:2;not null" json:"user_id"`
	Role     ChatRole  `gorm:"type:varchar(20);default:'USER'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	LastReadMessageID *uint      `json:"last_read_message_id"`
	LastReadAt        *time.Time `json:"last_read_at"`
	SoftDelete

	User User `gorm:"foreignKey:UserID" json:"user"`
	Chat Chat `gorm:"foreignKey:ChatID" json:"-"`
}

type ChatMemberResponse struct {
	UserID   uint       `json:"user_id"`
	Username string     `json:"username"`
	Role     ChatRole   `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

func (m *ChatMember) ToResponse() ChatMemberResponse {
	return ChatMemberResponse{
		UserID:   m.UserID,
		Username: m.User.Username,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
		IsOnline: m.User.IsOnline,
		LastSeen: m.User.LastSeen,
	}
}

// ChatListEntry is one row of a user's chat list, enriched with the last
// message preview and the caller's unread count.
type ChatListEntry struct {
	ID          uint         `json:"id"`
	Name        *string      `json:"name"`
	IsGroup     bool         `json:"is_group"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	LastMessage *MessageView `json:"last_message,omitempty"`
	UnreadCount int64        `json:"unread_count"`
}
