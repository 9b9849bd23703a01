package service

import (
	"errors"
	"time"

	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/cache"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
	"gorm.io/gorm"
)

// EditWindow bounds how long after creation a message stays editable. The
// window is anchored to created_at; editing does not re-open it.
const EditWindow = 10 * time.Minute

// MessageService is the message ledger: the ordered, soft-deletable message
// sequence of each chat, with reply links, forwarding provenance, reactions,
// pins and the enriched paginated view clients consume.
type MessageService struct {
	messageRepo  repository.MessageRepositoryInterface
	chatRepo     repository.ChatRepositoryInterface
	reactionRepo repository.ReactionRepositoryInterface
	receiptRepo  repository.ReadReceiptRepositoryInterface
	pinRepo      repository.PinRepositoryInterface
	userRepo     repository.UserRepositoryInterface
	readState    *ReadStateService
	broadcaster  realtime.Broadcaster
	chatCache    *cache.ChatListCache
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	chatRepo repository.ChatRepositoryInterface,
	reactionRepo repository.ReactionRepositoryInterface,
	receiptRepo repository.ReadReceiptRepositoryInterface,
	pinRepo repository.PinRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	readState *ReadStateService,
	broadcaster realtime.Broadcaster,
	chatCache *cache.ChatListCache,
) *MessageService {
	return &MessageService{
		messageRepo:  messageRepo,
		chatRepo:     chatRepo,
		reactionRepo: reactionRepo,
		receiptRepo:  receiptRepo,
		pinRepo:      pinRepo,
		userRepo:     userRepo,
		readState:    readState,
		broadcaster:  broadcaster,
		chatCache:    chatCache,
	}
}

// MessagePage is one page of the chat's message sequence, oldest first.
type MessagePage struct {
	Messages          []models.MessageView `json:"messages"`
	TotalCount        int64                `json:"total_count"`
	HasMore           bool                 `json:"has_more"`
	LastReadMessageID *uint                `json:"last_read_message_id"`
}

// ListMessages returns a page of enriched messages and, as a load-bearing
// side effect, advances the caller's read pointer when the page tail is a
// foreign, non-deleted message. The advance runs as an explicit step before
// serialization so the returned reads and pointer reflect it.
func (s *MessageService) ListMessages(userID, chatID uint, limit, offset int) (*MessagePage, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// limit+1 detects a further page without a second query.
	messages, err := s.messageRepo.FindPage(chatID, limit+1, offset)
	if err != nil {
		return nil, infra(err, "fetch_messages_failed")
	}
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	total, err := s.messageRepo.CountByChat(chatID)
	if err != nil {
		return nil, infra(err, "count_messages_failed")
	}

	if _, err := s.readState.AdvanceFromPage(userID, messages); err != nil {
		return nil, err
	}

	views, err := s.buildViews(chatID, messages, true)
	if err != nil {
		return nil, err
	}

	member, err := s.chatRepo.FindMember(chatID, userID)
	if err != nil {
		return nil, infra(err, "fetch_membership_failed")
	}

	return &MessagePage{
		Messages:          views,
		TotalCount:        total,
		HasMore:           hasMore,
		LastReadMessageID: member.LastReadMessageID,
	}, nil
}

// SendMessage appends a message to the chat, optionally as a reply to a
// non-deleted message of the same chat.
func (s *MessageService) SendMessage(userID, chatID uint, content string, replyToID *uint) (*models.MessageView, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	if content == "" {
		return nil, apperrors.Invalidf("missing_content", "Content is required")
	}

	if replyToID != nil {
		target, err := s.messageRepo.FindByID(*replyToID)
		if err != nil {
			return nil, orNotFound(err, "reply_target_not_found", "Reply target not found")
		}
		if target.ChatID != chatID || target.Deleted() {
			return nil, apperrors.NotFoundf("reply_target_not_found", "Reply target not found")
		}
	}

	message := &models.Message{
		ChatID:    chatID,
		SenderID:  userID,
		Content:   content,
		ReplyToID: replyToID,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, infra(err, "send_message_failed")
	}
	s.invalidateChatLists(chatID)

	view, err := s.buildView(message, true)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(realtime.ChatRoom(chatID), realtime.EventMessageNew, map[string]any{
		"chatId":  chatID,
		"message": view,
	})
	return view, nil
}

// ForwardMessage copies a message into another chat the caller belongs to,
// stamping provenance with the source chat's name as it reads right now. The
// snapshot is deliberate: renaming the source chat later must not rewrite
// forwarded history. Forwarding a forward keeps pointing at the original
// origin.
func (s *MessageService) ForwardMessage(userID, targetChatID, originalMessageID uint) (*models.MessageView, error) {
	if _, err := s.chatRepo.FindMember(targetChatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}

	original, err := s.messageRepo.FindByID(originalMessageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if original.Deleted() {
		return nil, apperrors.NotFoundf("message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(original.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}

	message := &models.Message{
		ChatID:   targetChatID,
		SenderID: userID,
		Content:  original.Content,
	}
	if original.ForwardedFromMessageID != nil {
		message.ForwardedFromMessageID = original.ForwardedFromMessageID
		message.ForwardedFromChatID = original.ForwardedFromChatID
		message.ForwardedFromChatName = original.ForwardedFromChatName
	} else {
		sourceChat, err := s.chatRepo.FindByID(original.ChatID)
		if err != nil {
			return nil, infra(err, "fetch_source_chat_failed")
		}
		originID := original.ID
		chatID := original.ChatID
		message.ForwardedFromMessageID = &originID
		message.ForwardedFromChatID = &chatID
		if sourceChat.Name != nil {
			name := *sourceChat.Name
			message.ForwardedFromChatName = &name
		}
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, infra(err, "forward_message_failed")
	}
	s.invalidateChatLists(targetChatID)

	view, err := s.buildView(message, true)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(realtime.ChatRoom(targetChatID), realtime.EventMessageNew, map[string]any{
		"chatId":  targetChatID,
		"message": view,
	})
	return view, nil
}

// EditMessage replaces the content of the caller's own message within the
// edit window. created_at never changes.
func (s *MessageService) EditMessage(userID, messageID uint, content string) (*models.MessageView, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if message.Deleted() {
		return nil, apperrors.NotFoundf("message_not_found", "Message not found")
	}
	if message.SenderID != userID {
		return nil, apperrors.Forbiddenf("not_message_sender", "Only the sender can edit a message")
	}
	if content == "" {
		return nil, apperrors.Invalidf("missing_content", "Content is required")
	}
	if time.Since(message.CreatedAt) > EditWindow {
		return nil, apperrors.Invalidf("edit_window_expired", "Message can no longer be edited")
	}

	now := time.Now()
	message.Content = content
	message.WasUpdated = true
	message.EditedAt = &now
	if err := s.messageRepo.Update(message); err != nil {
		return nil, infra(err, "edit_message_failed")
	}

	view, err := s.buildView(message, true)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventMessageUpdated, map[string]any{
		"chatId":  message.ChatID,
		"message": view,
	})
	return view, nil
}

// DeleteMessage soft-deletes the caller's own message. The row survives with
// blanked content so reply threads pointing at it stay navigable.
func (s *MessageService) DeleteMessage(userID, messageID uint) (*models.MessageView, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if message.Deleted() {
		return nil, apperrors.NotFoundf("message_not_found", "Message not found")
	}
	if message.SenderID != userID {
		return nil, apperrors.Forbiddenf("not_message_sender", "Only the sender can delete a message")
	}

	if err := s.messageRepo.SoftDelete(messageID); err != nil {
		return nil, infra(err, "delete_message_failed")
	}
	s.invalidateChatLists(message.ChatID)

	message, err = s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, infra(err, "fetch_message_failed")
	}
	view, err := s.buildView(message, true)
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventMessageDeleted, map[string]any{
		"chatId":    message.ChatID,
		"messageId": message.ID,
	})
	return view, nil
}

// GetMessageReplies lists the direct replies to a message, oldest first, with
// the same enrichment as ListMessages. The parent may itself be deleted;
// threads stay navigable.
func (s *MessageService) GetMessageReplies(userID, messageID uint) ([]models.MessageView, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}

	replies, err := s.messageRepo.FindReplies(messageID)
	if err != nil {
		return nil, infra(err, "fetch_replies_failed")
	}
	return s.buildViews(message.ChatID, replies, true)
}

// SearchMessages matches non-deleted content case-insensitively, newest
// first. Search is read-only: it never advances the read pointer.
func (s *MessageService) SearchMessages(userID, chatID uint, query string, limit, offset int) ([]models.MessageView, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}
	if query == "" {
		return nil, apperrors.Invalidf("missing_query", "Search query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	messages, err := s.messageRepo.Search(chatID, query, limit, offset)
	if err != nil {
		return nil, infra(err, "search_messages_failed")
	}
	return s.buildViews(chatID, messages, true)
}

// AddReaction adds the caller's emoji to a message. Re-adding a previously
// removed reaction restores the original row; reacting twice with the same
// emoji is a conflict.
func (s *MessageService) AddReaction(userID, messageID uint, emoji string) (*models.MessageView, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if message.Deleted() {
		return nil, apperrors.NotFoundf("message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if emoji == "" {
		return nil, apperrors.Invalidf("missing_emoji", "Emoji is required")
	}

	existing, err := s.reactionRepo.FindTriple(messageID, userID, emoji)
	switch {
	case err == nil && !existing.Deleted():
		return nil, apperrors.Conflictf("already_reacted", "Already reacted with this emoji")
	case err == nil:
		if err := s.reactionRepo.Restore(existing.ID); err != nil {
			return nil, infra(err, "add_reaction_failed")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		reaction := &models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji}
		if err := s.reactionRepo.Create(reaction); err != nil {
			return nil, infra(err, "add_reaction_failed")
		}
	default:
		return nil, infra(err, "add_reaction_failed")
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, infra(err, "fetch_user_failed")
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventReactionAdded, map[string]any{
		"chatId":    message.ChatID,
		"messageId": messageID,
		"reaction": map[string]any{
			"emoji":    emoji,
			"userId":   userID,
			"username": user.Username,
		},
	})
	return s.buildView(message, true)
}

// RemoveReaction soft-deletes the caller's reaction so a later re-add can
// restore it.
func (s *MessageService) RemoveReaction(userID, messageID uint, emoji string) (*models.MessageView, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}

	existing, err := s.reactionRepo.FindTriple(messageID, userID, emoji)
	if err != nil || existing.Deleted() {
		return nil, apperrors.NotFoundf("reaction_not_found", "Reaction not found")
	}
	if err := s.reactionRepo.SoftDelete(existing.ID); err != nil {
		return nil, infra(err, "remove_reaction_failed")
	}

	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventReactionRemoved, map[string]any{
		"chatId":    message.ChatID,
		"messageId": messageID,
		"reaction": map[string]any{
			"emoji":  emoji,
			"userId": userID,
		},
	})
	return s.buildView(message, true)
}

// PinMessage pins a message in its chat. Any active member may pin.
func (s *MessageService) PinMessage(userID, messageID uint) (*models.PinnedMessageResponse, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if message.Deleted() {
		return nil, apperrors.NotFoundf("message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}

	pin, err := s.pinRepo.Pin(message.ChatID, messageID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflictf("already_pinned", "Message is already pinned")
		}
		return nil, infra(err, "pin_message_failed")
	}

	view, err := s.buildView(message, true)
	if err != nil {
		return nil, err
	}
	response := &models.PinnedMessageResponse{
		ID:       pin.ID,
		ChatID:   pin.ChatID,
		PinnedBy: pin.PinnedBy,
		PinnedAt: pin.CreatedAt,
		Message:  *view,
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventMessagePinned, map[string]any{
		"chatId":        message.ChatID,
		"pinnedMessage": response,
	})
	return response, nil
}

func (s *MessageService) UnpinMessage(userID, messageID uint) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.pinRepo.FindActive(message.ChatID, messageID); err != nil {
		return orNotFound(err, "pin_not_found", "Pinned message not found")
	}

	if err := s.pinRepo.Unpin(message.ChatID, messageID); err != nil {
		return infra(err, "unpin_message_failed")
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventMessageUnpinned, map[string]any{
		"chatId":    message.ChatID,
		"messageId": messageID,
	})
	return nil
}

// ListPinnedMessages returns the chat's active pins, newest pin first.
func (s *MessageService) ListPinnedMessages(userID, chatID uint) ([]models.PinnedMessageResponse, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return nil, orNotFound(err, "chat_not_found", "Chat not found")
	}

	pins, err := s.pinRepo.ListByChat(chatID)
	if err != nil {
		return nil, infra(err, "fetch_pins_failed")
	}
	ids := make([]uint, 0, len(pins))
	for _, p := range pins {
		ids = append(ids, p.MessageID)
	}
	messages, err := s.messageRepo.FindByIDs(ids)
	if err != nil {
		return nil, infra(err, "fetch_pinned_messages_failed")
	}
	views, err := s.buildViews(chatID, messages, false)
	if err != nil {
		return nil, err
	}
	viewByID := make(map[uint]models.MessageView, len(views))
	for _, v := range views {
		viewByID[v.ID] = v
	}

	responses := make([]models.PinnedMessageResponse, 0, len(pins))
	for _, p := range pins {
		responses = append(responses, models.PinnedMessageResponse{
			ID:       p.ID,
			ChatID:   p.ChatID,
			PinnedBy: p.PinnedBy,
			PinnedAt: p.CreatedAt,
			Message:  viewByID[p.MessageID],
		})
	}
	return responses, nil
}

// invalidateChatLists drops every member's cached chat list after a mutation
// that changes ordering, previews or unread counts.
func (s *MessageService) invalidateChatLists(chatID uint) {
	if s.chatCache == nil {
		return
	}
	members, err := s.chatRepo.FindMembers(chatID)
	if err != nil {
		return
	}
	for _, m := range members {
		_ = s.chatCache.Invalidate(m.UserID)
	}
}
