package models

import "time"

type PinnedMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SoftDelete

	ChatID    uint `gorm:"index;not null" json:"chat_id"`
	MessageID uint `gorm:"index;not null" json:"message_id"`
	PinnedBy  uint `gorm:"not null" json:"pinned_by"`
}

type PinnedMessageResponse struct {
	ID        uint        `json:"id"`
	ChatID    uint        `json:"chat_id"`
	PinnedBy  uint        `json:"pinned_by"`
	PinnedAt  time.Time   `json:"pinned_at"`
	Message   MessageView `json:"message"`
}
