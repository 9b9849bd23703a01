package models

import "time"

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteRejected InviteStatus = "REJECTED"
)

type FriendInvite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDelete

	SenderID    uint         `gorm:"index:idx_invite_pair,priority:1;not null" json:"sender_id"`
	RecipientID uint         `gorm:"index:idx_invite_pair,priority:2;not null" json:"recipient_id"`
	Status      InviteStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	Token       string       `gorm:"type:varchar(36);uniqueIndex;not null" json:"token"`

	Sender    User `gorm:"foreignKey:SenderID" json:"-"`
	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
}

type FriendInviteResponse struct {
	ID        uint         `json:"id"`
	Sender    UserResponse `json:"sender"`
	Recipient UserResponse `json:"recipient"`
	Status    InviteStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

func (i *FriendInvite) ToResponse() FriendInviteResponse {
	return FriendInviteResponse{
		ID:        i.ID,
		Sender:    i.Sender.ToResponse(),
		Recipient: i.Recipient.ToResponse(),
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
	}
}

// Friendship links two users. The pair is stored normalized (UserAID < UserBID)
// so the unique index catches duplicates regardless of direction.
type Friendship struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	SoftDelete

	UserAID uint `gorm:"uniqueIndex:idx_friend_pair,priority:1;not null" json:"user_a_id"`
	UserBID uint `gorm:"uniqueIndex:idx_friend_pair,priority:2;not null" json:"user_b_id"`
}

// NormalizePair orders a friendship pair for storage.
func NormalizePair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
