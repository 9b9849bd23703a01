package models

import (
	"time"
)

type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDelete

	ChatID   uint   `gorm:"index;not null" json:"chat_id"`
	SenderID uint   `gorm:"index;not null" json:"sender_id"`
	Content  string `gorm:"type:text" json:"content"`

	WasUpdated bool       `gorm:"default:false" json:"was_updated"`
	EditedAt   *time.Time `json:"edited_at"`

	// Reply link, always within the same chat.
	ReplyToID *uint `gorm:"index" json:"reply_to_id"`

	// Forwarding provenance. ForwardedFromChatName is a snapshot taken at
	// forward time so later renames of the source chat don't rewrite history.
	ForwardedFromMessageID *uint   `json:"forwarded_from_message_id"`
	ForwardedFromChatID    *uint   `json:"forwarded_from_chat_id"`
	ForwardedFromChatName  *string `json:"forwarded_from_chat_name"`

	Sender  User     `gorm:"foreignKey:SenderID" json:"-"`
	ReplyTo *Message `gorm:"foreignKey:ReplyToID" json:"-"`
}

// ReactionGroup aggregates the non-deleted reactions on a message by emoji.
type ReactionGroup struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	UserIDs []uint `json:"user_ids"`
}

// ReadEntry is one visible reader of a message. Only members whose read
// pointer still equals the message appear here; see ReadStateService.
type ReadEntry struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	ReadAt   time.Time `json:"read_at"`
}

// ReplyPreview is the inline preview of the replied-to message. A deleted
// target renders with blanked content, it is never omitted.
type ReplyPreview struct {
	ID             uint   `json:"id"`
	Content        string `json:"content"`
	SenderUsername string `json:"sender_username"`
}

type ForwardInfo struct {
	MessageID         uint      `json:"message_id"`
	ChatID            uint      `json:"chat_id"`
	ChatName          string    `json:"chat_name"`
	SenderUsername    string    `json:"sender_username"`
	OriginalCreatedAt time.Time `json:"original_created_at"`
}

// MessageView is the enriched wire shape returned by every ledger read/write
// operation and carried in realtime message events.
type MessageView struct {
	ID             uint            `json:"id"`
	ChatID         uint            `json:"chat_id"`
	SenderID       uint            `json:"sender_id"`
	SenderUsername string          `json:"sender_username"`
	Content        string          `json:"content"`
	WasUpdated     bool            `json:"was_updated"`
	EditedAt       *time.Time      `json:"edited_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ReplyTo        *ReplyPreview   `json:"reply_to,omitempty"`
	ForwardedFrom  *ForwardInfo    `json:"forwarded_from,omitempty"`
	Reactions      []ReactionGroup `json:"reactions"`
	Reads          []ReadEntry     `json:"reads,omitempty"`
	IsPinned       bool            `json:"is_pinned"`
	IsDeleted      bool            `json:"is_deleted,omitempty"`
}

// VisibleContent is what a reader may see of the message body: deleted
// messages keep their row for thread integrity but expose an empty body.
func (m *Message) VisibleContent() string {
	if m.Deleted() {
		return ""
	}
	return m.Content
}
