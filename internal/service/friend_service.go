package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
	"gorm.io/gorm"
)

// FriendService handles friend invites and the resulting friendships.
type FriendService struct {
	friendRepo  repository.FriendRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	broadcaster realtime.Broadcaster
}

func NewFriendService(
	friendRepo repository.FriendRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	broadcaster realtime.Broadcaster,
) *FriendService {
	return &FriendService{
		friendRepo:  friendRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
	}
}

// SendInvite creates a pending invite from sender to recipient. At most one
// pending invite may exist between two users, in either direction, and
// existing friends cannot invite each other again.
func (s *FriendService) SendInvite(senderID, recipientID uint) (*models.FriendInviteResponse, error) {
	if senderID == recipientID {
		return nil, apperrors.Invalidf("self_invite", "Cannot send a friend invite to yourself")
	}
	if _, err := s.userRepo.FindByID(recipientID); err != nil {
		return nil, orNotFound(err, "user_not_found", "User not found")
	}

	if _, err := s.friendRepo.FindFriendship(senderID, recipientID); err == nil {
		return nil, apperrors.Conflictf("already_friends", "Already friends")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infra(err, "fetch_friendship_failed")
	}
	if _, err := s.friendRepo.FindPendingBetween(senderID, recipientID); err == nil {
		return nil, apperrors.Conflictf("invite_pending", "A pending invite already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infra(err, "fetch_invite_failed")
	}

	invite := &models.FriendInvite{
		SenderID:    senderID,
		RecipientID: recipientID,
		Status:      models.InvitePending,
		Token:       uuid.NewString(),
	}
	if err := s.friendRepo.CreateInvite(invite); err != nil {
		return nil, infra(err, "create_invite_failed")
	}

	invite, err := s.friendRepo.FindInviteByID(invite.ID)
	if err != nil {
		return nil, infra(err, "fetch_invite_failed")
	}
	response := invite.ToResponse()
	s.broadcaster.Emit(realtime.UserRoom(recipientID), realtime.EventFriendInviteReceived, map[string]any{
		"invite": response,
	})
	return &response, nil
}

// AcceptInvite accepts a pending invite. Only the recipient may accept; the
// sender gets a forbidden error, anyone else sees no invite at all.
func (s *FriendService) AcceptInvite(userID, inviteID uint) error {
	invite, err := s.friendRepo.FindInviteByID(inviteID)
	if err != nil {
		return orNotFound(err, "invite_not_found", "Invite not found")
	}
	if invite.SenderID == userID {
		return apperrors.Forbiddenf("own_invite", "Cannot accept your own invite")
	}
	if invite.RecipientID != userID {
		return apperrors.NotFoundf("invite_not_found", "Invite not found")
	}
	if invite.Status != models.InvitePending {
		return apperrors.Conflictf("invite_resolved", "Invite has already been resolved")
	}

	if _, err := s.friendRepo.Accept(invite.ID); err != nil {
		return infra(err, "accept_invite_failed")
	}

	s.broadcaster.Emit(realtime.UserRoom(invite.SenderID), realtime.EventFriendInviteAccepted, map[string]any{
		"inviteId": invite.ID,
		"userId":   userID,
	})
	return nil
}

// RejectInvite declines a pending invite. Recipient only.
func (s *FriendService) RejectInvite(userID, inviteID uint) error {
	invite, err := s.friendRepo.FindInviteByID(inviteID)
	if err != nil {
		return orNotFound(err, "invite_not_found", "Invite not found")
	}
	if invite.SenderID == userID {
		return apperrors.Forbiddenf("own_invite", "Cannot reject your own invite")
	}
	if invite.RecipientID != userID {
		return apperrors.NotFoundf("invite_not_found", "Invite not found")
	}
	if invite.Status != models.InvitePending {
		return apperrors.Conflictf("invite_resolved", "Invite has already been resolved")
	}

	if err := s.friendRepo.UpdateInviteStatus(invite.ID, models.InviteRejected); err != nil {
		return infra(err, "reject_invite_failed")
	}

	s.broadcaster.Emit(realtime.UserRoom(invite.SenderID), realtime.EventFriendInviteRejected, map[string]any{
		"inviteId": invite.ID,
		"userId":   userID,
	})
	return nil
}

// RemoveFriend ends a friendship. Either side may remove.
func (s *FriendService) RemoveFriend(userID, friendID uint) error {
	if _, err := s.friendRepo.FindFriendship(userID, friendID); err != nil {
		return orNotFound(err, "friendship_not_found", "Friendship not found")
	}
	if err := s.friendRepo.RemoveFriendship(userID, friendID); err != nil {
		return infra(err, "remove_friend_failed")
	}

	s.broadcaster.Emit(realtime.UserRoom(friendID), realtime.EventFriendRemoved, map[string]any{
		"userId": userID,
	})
	return nil
}

// ListFriends returns the user's current friends.
func (s *FriendService) ListFriends(userID uint) ([]models.UserResponse, error) {
	friends, err := s.friendRepo.ListFriends(userID)
	if err != nil {
		return nil, infra(err, "fetch_friends_failed")
	}
	responses := make([]models.UserResponse, 0, len(friends))
	for _, f := range friends {
		responses = append(responses, f.ToResponse())
	}
	return responses, nil
}

// ListPendingInvites returns invites awaiting the user's decision.
func (s *FriendService) ListPendingInvites(userID uint) ([]models.FriendInviteResponse, error) {
	invites, err := s.friendRepo.ListPendingInvites(userID)
	if err != nil {
		return nil, infra(err, "fetch_invites_failed")
	}
	responses := make([]models.FriendInviteResponse, 0, len(invites))
	for _, inv := range invites {
		responses = append(responses, inv.ToResponse())
	}
	return responses, nil
}

// FriendIDs returns the ids of the user's friends, for presence fan-out.
func (s *FriendService) FriendIDs(userID uint) ([]uint, error) {
	friends, err := s.friendRepo.ListFriends(userID)
	if err != nil {
		return nil, infra(err, "fetch_friends_failed")
	}
	ids := make([]uint, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
