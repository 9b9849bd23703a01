package repository

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

func (r *FriendRepository) CreateInvite(invite *models.FriendInvite) error {
	return r.db.Create(invite).Error
}

func (r *FriendRepository) FindInviteByID(id uint) (*models.FriendInvite, error) {
	var invite models.FriendInvite
	err := r.db.Scopes(Alive).
		Preload("Sender").
		Preload("Recipient").
		First(&invite, id).Error
	return &invite, err
}

// FindPendingBetween finds a pending invite in either direction.
func (r *FriendRepository) FindPendingBetween(userA, userB uint) (*models.FriendInvite, error) {
	var invite models.FriendInvite
	err := r.db.Scopes(Alive).
		Where("status = ?", models.InvitePending).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		First(&invite).Error
	return &invite, err
}

// Accept marks the invite accepted and creates the friendship row in one
// transaction; partial application is never visible.
func (r *FriendRepository) Accept(inviteID uint) (*models.Friendship, error) {
	var friendship models.Friendship
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var invite models.FriendInvite
		if err := tx.Scopes(Alive).First(&invite, inviteID).Error; err != nil {
			return err
		}
		if err := tx.Model(&invite).Update("status", models.InviteAccepted).Error; err != nil {
			return err
		}
		a, b := models.NormalizePair(invite.SenderID, invite.RecipientID)

		// A soft-deleted friendship between the pair is restored in place.
		err := tx.Where("user_a_id = ? AND user_b_id = ?", a, b).First(&friendship).Error
		switch {
		case err == nil:
			return tx.Model(&friendship).Update("deleted_at", nil).Error
		case err == gorm.ErrRecordNotFound:
			friendship = models.Friendship{UserAID: a, UserBID: b}
			return tx.Create(&friendship).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &friendship, nil
}

func (r *FriendRepository) UpdateInviteStatus(inviteID uint, status models.InviteStatus) error {
	return r.db.Model(&models.FriendInvite{}).
		Where("id = ? AND deleted_at IS NULL", inviteID).
		Update("status", status).Error
}

func (r *FriendRepository) FindFriendship(userA, userB uint) (*models.Friendship, error) {
	a, b := models.NormalizePair(userA, userB)
	var friendship models.Friendship
	err := r.db.Scopes(Alive).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&friendship).Error
	return &friendship, err
}

func (r *FriendRepository) RemoveFriendship(userA, userB uint) error {
	a, b := models.NormalizePair(userA, userB)
	return r.db.Model(&models.Friendship{}).
		Where("user_a_id = ? AND user_b_id = ? AND deleted_at IS NULL", a, b).
		Update("deleted_at", time.Now()).Error
}

func (r *FriendRepository) ListFriends(userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.Scopes(AliveIn("users")).
		Joins(`JOIN friendships ON (friendships.user_a_id = users.id AND friendships.user_b_id = ?)
			OR (friendships.user_b_id = users.id AND friendships.user_a_id = ?)`, userID, userID).
		Where("friendships.deleted_at IS NULL").
		Find(&users).Error
	return users, err
}

// ListPendingInvites returns invites awaiting action, incoming or outgoing.
func (r *FriendRepository) ListPendingInvites(userID uint) ([]models.FriendInvite, error) {
	var invites []models.FriendInvite
	err := r.db.Scopes(Alive).
		Where("status = ?", models.InvitePending).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Preload("Sender").
		Preload("Recipient").
		Order("created_at DESC").
		Find(&invites).Error
	return invites, err
}
