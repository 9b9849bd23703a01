package cache

import (
	"fmt"
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for different cache types
const (
	ChatListTTL    = 2 * time.Minute
	UnreadCountTTL = 1 * time.Minute
)

// ChatListCache caches each user's chat list (previews, unread counts). All
// methods are nil-safe so services work without Redis configured.
type ChatListCache struct {
	redis *RedisCache
}

// NewChatListCache creates a new chat list cache
func NewChatListCache(redis *RedisCache) *ChatListCache {
	return &ChatListCache{redis: redis}
}

func chatListKey(userID uint) string {
	return fmt.Sprintf("chatlist:%d", userID)
}

func unreadKey(userID, chatID uint) string {
	return fmt.Sprintf("unread:%d:%d", userID, chatID)
}

// Get retrieves a user's cached chat list
func (cc *ChatListCache) Get(userID uint) ([]models.ChatListEntry, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(chatListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var entries []models.ChatListEntry
	if err := msgpack.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// Set caches a user's chat list
func (cc *ChatListCache) Set(userID uint, entries []models.ChatListEntry) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return err
	}
	return cc.redis.Set(chatListKey(userID), data, ChatListTTL)
}

// Invalidate removes a user's chat list and unread counts from cache
func (cc *ChatListCache) Invalidate(userID uint) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	if err := cc.redis.Delete(chatListKey(userID)); err != nil {
		return err
	}
	return cc.redis.DeletePattern(fmt.Sprintf("unread:%d:*", userID))
}

// GetUnreadCount retrieves a cached per-chat unread count
func (cc *ChatListCache) GetUnreadCount(userID, chatID uint) (int64, bool) {
	if cc == nil || cc.redis == nil {
		return 0, false
	}
	data, err := cc.redis.Get(unreadKey(userID, chatID))
	if err != nil || data == nil {
		return 0, false
	}

	var count int64
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches a per-chat unread count
func (cc *ChatListCache) SetUnreadCount(userID, chatID uint, count int64) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(count)
	if err != nil {
		return err
	}
	return cc.redis.Set(unreadKey(userID, chatID), data, UnreadCountTTL)
}

// InvalidateUnreadCount removes a per-chat unread count from cache
func (cc *ChatListCache) InvalidateUnreadCount(userID, chatID uint) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	return cc.redis.Delete(unreadKey(userID, chatID))
}
