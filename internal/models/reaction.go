package models

import "time"

// Reaction is one user's emoji on one message. The (message_id, user_id,
// emoji) triple is unique; removing and re-adding the same reaction restores
// the existing row instead of inserting a duplicate.
type Reaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SoftDelete

	MessageID uint   `gorm:"uniqueIndex:idx_reaction_triple,priority:1;not null" json:"message_id"`
	UserID    uint   `gorm:"uniqueIndex:idx_reaction_triple,priority:2;not null" json:"user_id"`
	Emoji     string `gorm:"uniqueIndex:idx_reaction_triple,priority:3;type:varchar(16);not null" json:"emoji"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
