package realtime

import "fmt"

// TypingStart relays a typing indicator to the chat room. Typing is ephemeral:
// nothing is persisted, and membership is re-checked on every event rather
// than trusted from room-join time.
type TypingStart struct {
	ChatID uint `json:"chat_id"`
}

func (msg *TypingStart) GetType() string {
	return EventTypingStart
}

func (msg *TypingStart) Process(ctx *MessageContext) error {
	ok, err := ctx.Memberships.IsActiveMember(msg.ChatID, ctx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not a member of chat %d", msg.ChatID)
	}
	ctx.Hub.Emit(ChatRoom(msg.ChatID), EventTypingStart, map[string]any{
		"chatId":   msg.ChatID,
		"userId":   ctx.UserID,
		"username": ctx.Username,
	})
	return nil
}

type TypingStop struct {
	ChatID uint `json:"chat_id"`
}

func (msg *TypingStop) GetType() string {
	return EventTypingStop
}

func (msg *TypingStop) Process(ctx *MessageContext) error {
	ok, err := ctx.Memberships.IsActiveMember(msg.ChatID, ctx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not a member of chat %d", msg.ChatID)
	}
	ctx.Hub.Emit(ChatRoom(msg.ChatID), EventTypingStop, map[string]any{
		"chatId": msg.ChatID,
		"userId": ctx.UserID,
	})
	return nil
}
