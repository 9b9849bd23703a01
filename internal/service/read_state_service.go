package service

import (
	"time"

	"github.com/pulsechat/pulse-backend/internal/cache"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
)

// ReadStateService maintains the per-member read high-water mark and answers
// read-receipt queries without leaking stale state.
//
// The membership's LastReadMessageID is authoritative: it only ever advances
// to strictly newer messages, and a receipt is surfaced in a message's reads
// only while its author's pointer still equals that message.
type ReadStateService struct {
	chatRepo    repository.ChatRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
	receiptRepo repository.ReadReceiptRepositoryInterface
	userRepo    repository.UserRepositoryInterface
	broadcaster realtime.Broadcaster
	chatCache   *cache.ChatListCache
}

func NewReadStateService(
	chatRepo repository.ChatRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	receiptRepo repository.ReadReceiptRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	broadcaster realtime.Broadcaster,
	chatCache *cache.ChatListCache,
) *ReadStateService {
	return &ReadStateService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		receiptRepo: receiptRepo,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		chatCache:   chatCache,
	}
}

// MarkAsRead advances the caller's read pointer to the given message. Reading
// one's own message is a no-op, as is any attempt to move the pointer to a
// message older than the one already tracked. Returns whether the pointer
// actually advanced.
func (s *ReadStateService) MarkAsRead(userID, messageID uint) (bool, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return false, orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return false, orNotFound(err, "message_not_found", "Message not found")
	}
	if message.SenderID == userID || message.Deleted() {
		return false, nil
	}
	return s.advance(userID, message)
}

// AdvanceFromPage applies the implicit mark-as-read a message page fetch
// carries: if the page's newest message was sent by someone else and is not
// deleted, the pointer advances to it under the same monotonic rule. Search
// and other read-only paths simply don't call this.
func (s *ReadStateService) AdvanceFromPage(userID uint, page []models.Message) (bool, error) {
	if len(page) == 0 {
		return false, nil
	}
	tail := page[len(page)-1]
	if tail.SenderID == userID || tail.Deleted() {
		return false, nil
	}
	return s.advance(userID, &tail)
}

func (s *ReadStateService) advance(userID uint, message *models.Message) (bool, error) {
	readAt := time.Now()
	advanced, err := s.receiptRepo.AdvancePointer(message.ChatID, userID, message.ID, readAt)
	if err != nil {
		return false, infra(err, "advance_read_pointer_failed")
	}
	if !advanced {
		return false, nil
	}
	_ = s.chatCache.InvalidateUnreadCount(userID, message.ChatID)

	// The transaction committed; mirror the new read position to the room.
	reader, err := s.userRepo.FindByID(userID)
	if err != nil {
		return true, nil
	}
	s.broadcaster.Emit(realtime.ChatRoom(message.ChatID), realtime.EventMessageRead, map[string]any{
		"chatId":    message.ChatID,
		"messageId": message.ID,
		"reader": map[string]any{
			"userId":   userID,
			"username": reader.Username,
			"readAt":   readAt,
		},
	})
	return true, nil
}

// GetMessageReaders returns the literal receipt log for one message, newest
// read first. Unlike the reads field of serialized messages, this view is not
// filtered against read pointers.
func (s *ReadStateService) GetMessageReaders(userID, messageID uint) ([]models.ReadEntry, error) {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}
	if _, err := s.chatRepo.FindMember(message.ChatID, userID); err != nil {
		return nil, orNotFound(err, "message_not_found", "Message not found")
	}

	receipts, err := s.receiptRepo.ListByMessage(messageID)
	if err != nil {
		return nil, infra(err, "list_readers_failed")
	}
	entries := make([]models.ReadEntry, 0, len(receipts))
	for _, r := range receipts {
		entries = append(entries, models.ReadEntry{
			UserID:   r.UserID,
			Username: r.User.Username,
			ReadAt:   r.ReadAt,
		})
	}
	return entries, nil
}

// UnreadCount counts non-deleted messages the user neither sent nor read.
// Counts are served from a short-lived cache entry that pointer advances and
// new messages invalidate.
func (s *ReadStateService) UnreadCount(userID, chatID uint) (int64, error) {
	if _, err := s.chatRepo.FindMember(chatID, userID); err != nil {
		return 0, orNotFound(err, "chat_not_found", "Chat not found")
	}
	if cached, ok := s.chatCache.GetUnreadCount(userID, chatID); ok {
		return cached, nil
	}
	count, err := s.receiptRepo.UnreadCount(chatID, userID)
	if err != nil {
		return 0, infra(err, "unread_count_failed")
	}
	_ = s.chatCache.SetUnreadCount(userID, chatID, count)
	return count, nil
}

// currentReads filters a message's receipts down to the readers whose pointer
// still equals that message: a user surfaces as a visible reader in exactly
// one place per chat, their most recent read position. Receipts of users whose
// membership is gone are dropped with the same pass.
func currentReads(messageID uint, receipts []models.ReadReceipt, members map[uint]models.ChatMember) []models.ReadEntry {
	var entries []models.ReadEntry
	for _, r := range receipts {
		if r.MessageID != messageID {
			continue
		}
		member, ok := members[r.UserID]
		if !ok || member.LastReadMessageID == nil || *member.LastReadMessageID != messageID {
			continue
		}
		entries = append(entries, models.ReadEntry{
			UserID:   r.UserID,
			Username: member.User.Username,
			ReadAt:   r.ReadAt,
		})
	}
	return entries
}
