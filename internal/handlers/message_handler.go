package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/pulsechat/pulse-backend/internal/httpx"
	"github.com/pulsechat/pulse-backend/internal/service"
	"github.com/pulsechat/pulse-backend/internal/validation"
)

type MessageHandler struct {
	messageService *service.MessageService
	readState      *service.ReadStateService
}

func NewMessageHandler(messageService *service.MessageService, readState *service.ReadStateService) *MessageHandler {
	return &MessageHandler{messageService: messageService, readState: readState}
}

// urlDecodedParam unescapes a path segment; emoji need percent-encoding.
func urlDecodedParam(c *fiber.Ctx, name string) (string, error) {
	return url.PathUnescape(c.Params(name))
}

func messageID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("messageId")
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// ListMessages returns a page of a chat's messages, oldest first. Fetching a
// page also advances the caller's read pointer.
// GET /chats/:chatId/messages?limit=&offset=
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	page, err := h.messageService.ListMessages(userID, id, limit, offset)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(page)
}

// SendMessage appends a message, optionally as a reply.
// POST /chats/:chatId/messages
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input struct {
		Content   string `json:"content"`
		ReplyToID *uint  `json:"reply_to_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	input.Content = validation.TrimAndLimit(input.Content, validation.MaxMessageLength())

	message, err := h.messageService.SendMessage(userID, id, input.Content, input.ReplyToID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

// ForwardMessage copies a message into another chat.
// POST /chats/:chatId/messages/forward
func (h *MessageHandler) ForwardMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input struct {
		MessageID uint `json:"message_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.MessageID == 0 {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.messageService.ForwardMessage(userID, id, input.MessageID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

// EditMessage replaces a message's content within the edit window.
// PATCH /messages/:messageId
func (h *MessageHandler) EditMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	var input struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	input.Content = validation.TrimAndLimit(input.Content, validation.MaxMessageLength())

	message, err := h.messageService.EditMessage(userID, id, input.Content)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": message})
}

// DeleteMessage soft-deletes the caller's own message.
// DELETE /messages/:messageId
func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	message, err := h.messageService.DeleteMessage(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": message})
}

// GetReplies lists the direct replies to a message.
// GET /messages/:messageId/replies
func (h *MessageHandler) GetReplies(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	replies, err := h.messageService.GetMessageReplies(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"replies": replies})
}

// SearchMessages matches message content within one chat.
// GET /chats/:chatId/messages/search?q=
func (h *MessageHandler) SearchMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	query := c.Query("q")
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	messages, err := h.messageService.SearchMessages(userID, id, query, limit, offset)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// MarkAsRead moves the caller's read pointer to a message.
// POST /messages/:messageId/read
func (h *MessageHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	advanced, err := h.readState.MarkAsRead(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"advanced": advanced})
}

// GetReaders lists everyone who has read a message, most recent first.
// GET /messages/:messageId/readers
func (h *MessageHandler) GetReaders(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	readers, err := h.readState.GetMessageReaders(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"readers": readers})
}

// AddReaction reacts to a message with an emoji.
// POST /messages/:messageId/reactions
func (h *MessageHandler) AddReaction(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	var input struct {
		Emoji string `json:"emoji"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	message, err := h.messageService.AddReaction(userID, id, input.Emoji)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

// RemoveReaction removes the caller's reaction.
// DELETE /messages/:messageId/reactions/:emoji
func (h *MessageHandler) RemoveReaction(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}
	emoji, err := urlDecodedParam(c, "emoji")
	if err != nil || emoji == "" {
		return httpx.BadRequest(c, "missing_emoji", "Emoji is required")
	}

	message, err := h.messageService.RemoveReaction(userID, id, emoji)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"message": message})
}

// PinMessage pins a message in its chat.
// POST /messages/:messageId/pin
func (h *MessageHandler) PinMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	pin, err := h.messageService.PinMessage(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"pinned_message": pin})
}

// UnpinMessage unpins a message.
// DELETE /messages/:messageId/pin
func (h *MessageHandler) UnpinMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := messageID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message ID")
	}

	if err := h.messageService.UnpinMessage(userID, id); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPinned lists a chat's pinned messages.
// GET /chats/:chatId/pins
func (h *MessageHandler) ListPinned(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	pins, err := h.messageService.ListPinnedMessages(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"pinned_messages": pins})
}
