package models

import "time"

// ReadReceipt is the denormalized per-message read log: one row per
// (message_id, user_id), upserted so the latest read_at wins. Receipts are
// never removed when a user reads past a message; stale ones are filtered at
// serialization time against the member's read pointer.
type ReadReceipt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SoftDelete

	MessageID uint      `gorm:"uniqueIndex:idx_receipt_pair,priority:1;not null" json:"message_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_receipt_pair,priority:2;not null" json:"user_id"`
	ReadAt    time.Time `gorm:"not null" json:"read_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
