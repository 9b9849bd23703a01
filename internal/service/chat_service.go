package service

import (
	"errors"

	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/cache"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
	"gorm.io/gorm"
)

// ChatService owns chats and their membership state machine: who belongs to
// a chat, with which role, and how membership transitions keep the
// single-owner invariant for groups.
type ChatService struct {
	chatRepo    repository.ChatRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
	receiptRepo repository.ReadReceiptRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	messages    *MessageService
	broadcaster realtime.Broadcaster
	chatCache   *cache.ChatListCache
}

func NewChatService(
	chatRepo repository.ChatRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	receiptRepo repository.ReadReceiptRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	messages *MessageService,
	broadcaster realtime.Broadcaster,
	chatCache *cache.ChatListCache,
) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		messages:    messages,
		broadcaster: broadcaster,
		chatCache:   chatCache,
	}
}

// ChatResponse is the wire shape of a chat with its active members.
type ChatResponse struct {
	ID      uint                        `json:"id"`
	Name    *string                     `json:"name,omitempty"`
	IsGroup bool                        `json:"is_group"`
	Members []models.ChatMemberResponse `json:"members"`
}

func (s *ChatService) toResponse(chat *models.Chat) (*ChatResponse, error) {
	members, err := s.chatRepo.FindMembers(chat.ID)
	if err != nil {
		return nil, infra(err, "fetch_members_failed")
	}
	memberResponses := make([]models.ChatMemberResponse, 0, len(members))
	for _, m := range members {
		memberResponses = append(memberResponses, m.ToResponse())
	}
	return &ChatResponse{
		ID:      chat.ID,
		Name:    chat.Name,
		IsGroup: chat.IsGroup,
		Members: memberResponses,
	}, nil
}

// CreateDirectChat returns the existing 1-on-1 chat between the two users,
// or creates it. Idempotent: there is at most one direct chat per pair.
func (s *ChatService) CreateDirectChat(userID, otherUserID uint) (*ChatResponse, error) {
	if userID == otherUserID {
		return nil, apperrors.Invalidf("self_chat", "Cannot start a chat with yourself")
	}
	if _, err := s.userRepo.FindByID(otherUserID); err != nil {
		return nil, orNotFound(err, "user_not_found", "User not found")
	}

	existing, err := s.chatRepo.FindDirectChat(userID, otherUserID)
	if err == nil {
		return s.toResponse(existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infra(err, "fetch_chat_failed")
	}

	chat, err := s.chatRepo.CreateDirectChat(userID, otherUserID)
	if err != nil {
		return nil, infra(err, "create_chat_failed")
	}
	s.invalidateFor(userID, otherUserID)

	response, err := s.toResponse(chat)
	if err != nil {
		return nil, err
	}
	for _, memberID := range []uint{userID, otherUserID} {
		s.broadcaster.JoinUser(memberID, realtime.ChatRoom(chat.ID))
		s.broadcaster.Emit(realtime.UserRoom(memberID), realtime.EventChatCreated, map[string]any{
			"chat": response,
		})
	}
	return response, nil
}

// CreateGroupChat creates a group with the caller as OWNER and the given
// users as USER members. At least one other member is required.
func (s *ChatService) CreateGroupChat(userID uint, name string, memberIDs []uint) (*ChatResponse, error) {
	if name == "" {
		return nil, apperrors.Invalidf("missing_name", "Group name is required")
	}
	others := make([]uint, 0, len(memberIDs))
	seen := map[uint]bool{userID: true}
	for _, id := range memberIDs {
		if !seen[id] {
			seen[id] = true
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return nil, apperrors.Invalidf("missing_members", "A group needs at least one other member")
	}
	users, err := s.userRepo.FindByIDs(others)
	if err != nil {
		return nil, infra(err, "fetch_users_failed")
	}
	if len(users) != len(others) {
		return nil, apperrors.NotFoundf("user_not_found", "User not found")
	}

	chat, err := s.chatRepo.CreateGroupChat(name, userID, others)
	if err != nil {
		return nil, infra(err, "create_chat_failed")
	}
	s.invalidateFor(append(others, userID)...)

	response, err := s.toResponse(chat)
	if err != nil {
		return nil, err
	}
	for id := range seen {
		s.broadcaster.JoinUser(id, realtime.ChatRoom(chat.ID))
		s.broadcaster.Emit(realtime.UserRoom(id), realtime.EventChatCreated, map[string]any{
			"chat": response,
		})
	}
	return response, nil
}

// AddMember adds a user to a group as USER. Requires the caller to be OWNER
// or MODERATOR. A previously removed member is re-admitted with their old
// membership row restored, read pointer intact.
func (s *ChatService) AddMember(actorID, chatID, targetID uint) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if !chat.IsGroup {
		return apperrors.Invalidf("not_a_group", "Members can only be added to group chats")
	}
	actor, err := s.chatRepo.FindMember(chatID, actorID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleModerator {
		return apperrors.Forbiddenf("insufficient_role", "Only owners and moderators can add members")
	}
	target, err := s.userRepo.FindByID(targetID)
	if err != nil {
		return orNotFound(err, "user_not_found", "User not found")
	}

	if _, err := s.chatRepo.AddMember(chatID, targetID, models.RoleUser); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflictf("already_member", "User is already a member")
		}
		return infra(err, "add_member_failed")
	}
	s.invalidateFor(targetID)

	s.broadcaster.JoinUser(targetID, realtime.ChatRoom(chatID))
	payload := map[string]any{
		"chatId": chatID,
		"member": map[string]any{
			"userId":   targetID,
			"username": target.Username,
			"role":     models.RoleUser,
		},
	}
	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventMemberAdded, payload)
	s.broadcaster.Emit(realtime.UserRoom(targetID), realtime.EventMemberAdded, payload)
	return nil
}

// RemoveMember removes a user from a group. Owners may remove anyone but
// themselves; moderators may only remove plain USER members; the owner can
// never be removed.
func (s *ChatService) RemoveMember(actorID, chatID, targetID uint) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if !chat.IsGroup {
		return apperrors.Invalidf("not_a_group", "Members can only be removed from group chats")
	}
	actor, err := s.chatRepo.FindMember(chatID, actorID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if actorID == targetID {
		return apperrors.Invalidf("self_removal", "Use leave to exit a chat")
	}
	target, err := s.chatRepo.FindMember(chatID, targetID)
	if err != nil {
		return orNotFound(err, "member_not_found", "Member not found")
	}
	if target.Role == models.RoleOwner {
		return apperrors.Forbiddenf("cannot_remove_owner", "The owner cannot be removed")
	}
	switch actor.Role {
	case models.RoleOwner:
	case models.RoleModerator:
		if target.Role != models.RoleUser {
			return apperrors.Forbiddenf("insufficient_role", "Moderators can only remove regular members")
		}
	default:
		return apperrors.Forbiddenf("insufficient_role", "Only owners and moderators can remove members")
	}

	if err := s.chatRepo.RemoveMember(chatID, targetID); err != nil {
		return infra(err, "remove_member_failed")
	}
	s.invalidateFor(targetID)

	payload := map[string]any{
		"chatId": chatID,
		"userId": targetID,
	}
	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventMemberRemoved, payload)
	s.broadcaster.Emit(realtime.UserRoom(targetID), realtime.EventMemberRemoved, payload)
	s.broadcaster.LeaveUser(targetID, realtime.ChatRoom(chatID))
	return nil
}

// UpdateRole changes a member's role. Only the owner may change roles.
// Assigning OWNER transfers ownership: the previous owner becomes MODERATOR
// in the same transaction, so a group has exactly one owner at all times.
func (s *ChatService) UpdateRole(actorID, chatID, targetID uint, role models.ChatRole) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if !chat.IsGroup {
		return apperrors.Invalidf("not_a_group", "Roles only apply to group chats")
	}
	actor, err := s.chatRepo.FindMember(chatID, actorID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if actor.Role != models.RoleOwner {
		return apperrors.Forbiddenf("insufficient_role", "Only the owner can change roles")
	}
	if actorID == targetID {
		return apperrors.Invalidf("self_role_change", "Transfer ownership by promoting another member")
	}
	target, err := s.chatRepo.FindMember(chatID, targetID)
	if err != nil {
		return orNotFound(err, "member_not_found", "Member not found")
	}
	switch role {
	case models.RoleUser, models.RoleModerator, models.RoleOwner:
	default:
		return apperrors.Invalidf("invalid_role", "Unknown role")
	}
	if target.Role == role {
		return apperrors.Conflictf("role_unchanged", "Member already has this role")
	}

	if role == models.RoleOwner {
		if err := s.chatRepo.SwapOwner(chatID, targetID, actorID); err != nil {
			return infra(err, "transfer_ownership_failed")
		}
	} else {
		if err := s.chatRepo.UpdateMemberRole(chatID, targetID, role); err != nil {
			return infra(err, "update_role_failed")
		}
	}

	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventChatUpdated, map[string]any{
		"chatId": chatID,
		"member": map[string]any{
			"userId": targetID,
			"role":   role,
		},
	})
	return nil
}

// LeaveChat removes the caller's own membership. In a 1-on-1 chat only the
// caller's side goes away. In a group, a leaving owner hands ownership to
// the longest-tenured remaining member; the last member leaving retires the
// chat itself.
func (s *ChatService) LeaveChat(userID, chatID uint) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	member, err := s.chatRepo.FindMember(chatID, userID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}

	if !chat.IsGroup {
		if err := s.chatRepo.RemoveMember(chatID, userID); err != nil {
			return infra(err, "leave_chat_failed")
		}
	} else {
		count, err := s.chatRepo.ActiveMemberCount(chatID)
		if err != nil {
			return infra(err, "count_members_failed")
		}
		switch {
		case count <= 1:
			if err := s.chatRepo.SoftDeleteChat(chatID); err != nil {
				return infra(err, "leave_chat_failed")
			}
		case member.Role == models.RoleOwner:
			heir, err := s.chatRepo.LongestTenuredMember(chatID, userID)
			if err != nil {
				return infra(err, "find_successor_failed")
			}
			if err := s.chatRepo.PromoteAndRemove(chatID, heir.UserID, userID); err != nil {
				return infra(err, "leave_chat_failed")
			}
			s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventChatUpdated, map[string]any{
				"chatId": chatID,
				"member": map[string]any{
					"userId": heir.UserID,
					"role":   models.RoleOwner,
				},
			})
		default:
			if err := s.chatRepo.RemoveMember(chatID, userID); err != nil {
				return infra(err, "leave_chat_failed")
			}
		}
	}
	s.invalidateFor(userID)

	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventMemberRemoved, map[string]any{
		"chatId": chatID,
		"userId": userID,
	})
	s.broadcaster.LeaveUser(userID, realtime.ChatRoom(chatID))
	return nil
}

// RenameGroup changes a group's name. Requires OWNER or MODERATOR.
func (s *ChatService) RenameGroup(actorID, chatID uint, name string) error {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if !chat.IsGroup {
		return apperrors.Invalidf("not_a_group", "Only group chats have names")
	}
	actor, err := s.chatRepo.FindMember(chatID, actorID)
	if err != nil {
		return orNotFound(err, "chat_not_found", "Chat not found")
	}
	if actor.Role != models.RoleOwner && actor.Role != models.RoleModerator {
		return apperrors.Forbiddenf("insufficient_role", "Only owners and moderators can rename the group")
	}
	if name == "" {
		return apperrors.Invalidf("missing_name", "Group name is required")
	}

	if err := s.chatRepo.UpdateName(chatID, name); err != nil {
		return infra(err, "rename_chat_failed")
	}
	members, err := s.chatRepo.FindMembers(chatID)
	if err == nil {
		for _, m := range members {
			_ = s.chatCache.Invalidate(m.UserID)
		}
	}

	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventChatUpdated, map[string]any{
		"chatId": chatID,
		"name":   name,
	})
	return nil
}

// ListUserChats returns the caller's chats ordered by last activity, each
// with the latest message preview and the caller's unread count.
func (s *ChatService) ListUserChats(userID uint) ([]models.ChatListEntry, error) {
	if cached, ok := s.chatCache.Get(userID); ok {
		return cached, nil
	}

	chats, err := s.chatRepo.ListUserChats(userID)
	if err != nil {
		return nil, infra(err, "fetch_chats_failed")
	}

	entries := make([]models.ChatListEntry, 0, len(chats))
	for _, chat := range chats {
		entry := models.ChatListEntry{
			ID:      chat.ID,
			Name:    chat.Name,
			IsGroup: chat.IsGroup,
		}

		latest, err := s.messageRepo.LatestInChat(chat.ID)
		if err == nil {
			view, err := s.messages.buildView(latest, false)
			if err != nil {
				return nil, err
			}
			entry.LastMessage = view
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, infra(err, "fetch_latest_message_failed")
		}

		unread, err := s.receiptRepo.UnreadCount(chat.ID, userID)
		if err != nil {
			return nil, infra(err, "count_unread_failed")
		}
		entry.UnreadCount = unread

		entries = append(entries, entry)
	}

	_ = s.chatCache.Set(userID, entries)
	return entries, nil
}

// GetChat returns one chat with its active members, caller must belong.
func (s *ChatService) GetChat(userID, chatID uint) (*ChatResponse, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	return s.toResponse(chat)
}

// GetChatMembers lists a chat's active members, join order.
func (s *ChatService) GetChatMembers(userID, chatID uint) ([]models.ChatMemberResponse, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	members, err := s.chatRepo.FindMembers(chatID)
	if err != nil {
		return nil, infra(err, "fetch_members_failed")
	}
	responses := make([]models.ChatMemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, m.ToResponse())
	}
	return responses, nil
}

// ActiveChatIDs returns the chats a user currently belongs to. The socket
// layer uses it to compute the room join set on connect.
func (s *ChatService) ActiveChatIDs(userID uint) ([]uint, error) {
	chats, err := s.chatRepo.ListUserChats(userID)
	if err != nil {
		return nil, infra(err, "fetch_chats_failed")
	}
	ids := make([]uint, 0, len(chats))
	for _, chat := range chats {
		ids = append(ids, chat.ID)
	}
	return ids, nil
}

// IsActiveMember reports whether the user currently belongs to the chat.
func (s *ChatService) IsActiveMember(chatID, userID uint) (bool, error) {
	_, err := s.chatRepo.FindMember(chatID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, infra(err, "fetch_membership_failed")
	}
	return true, nil
}

func (s *ChatService) invalidateFor(userIDs ...uint) {
	for _, id := range userIDs {
		_ = s.chatCache.Invalidate(id)
	}
}
