package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pulsechat/pulse-backend/internal/httpx"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/service"
	"github.com/pulsechat/pulse-backend/internal/validation"
)

type ChatHandler struct {
	chatService *service.ChatService
	readState   *service.ReadStateService
}

func NewChatHandler(chatService *service.ChatService, readState *service.ReadStateService) *ChatHandler {
	return &ChatHandler{chatService: chatService, readState: readState}
}

func chatID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("chatId")
	if err != nil || id <= 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// CreateDirectChat starts (or returns) the 1-on-1 chat with another user.
// POST /chats/direct
func (h *ChatHandler) CreateDirectChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input struct {
		UserID uint `json:"user_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.UserID == 0 {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	chat, err := h.chatService.CreateDirectChat(userID, input.UserID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chat": chat})
}

// CreateGroupChat creates a group with the caller as owner.
// POST /chats/group
func (h *ChatHandler) CreateGroupChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input struct {
		Name      string `json:"name"`
		MemberIDs []uint `json:"member_ids"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	input.Name = validation.TrimAndLimit(input.Name, 80)

	chat, err := h.chatService.CreateGroupChat(userID, input.Name, input.MemberIDs)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chat": chat})
}

// ListChats returns the caller's chats ordered by last activity.
// GET /chats
func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	chats, err := h.chatService.ListUserChats(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// GetChat returns one chat with its members.
// GET /chats/:chatId
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	chat, err := h.chatService.GetChat(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"chat": chat})
}

// GetMembers lists a chat's active members.
// GET /chats/:chatId/members
func (h *ChatHandler) GetMembers(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	members, err := h.chatService.GetChatMembers(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

// AddMember adds a user to a group.
// POST /chats/:chatId/members
func (h *ChatHandler) AddMember(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input struct {
		UserID uint `json:"user_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.UserID == 0 {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.chatService.AddMember(userID, id, input.UserID); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveMember removes a user from a group.
// DELETE /chats/:chatId/members/:userId
func (h *ChatHandler) RemoveMember(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	targetID, err := c.ParamsInt("userId")
	if err != nil || targetID <= 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.chatService.RemoveMember(userID, id, uint(targetID)); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpdateRole changes a member's role.
// PATCH /chats/:chatId/members/:userId/role
func (h *ChatHandler) UpdateRole(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}
	targetID, err := c.ParamsInt("userId")
	if err != nil || targetID <= 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var input struct {
		Role models.ChatRole `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if err := h.chatService.UpdateRole(userID, id, uint(targetID), input.Role); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LeaveChat removes the caller from the chat.
// POST /chats/:chatId/leave
func (h *ChatHandler) LeaveChat(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	if err := h.chatService.LeaveChat(userID, id); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RenameGroup changes a group's name.
// PATCH /chats/:chatId
func (h *ChatHandler) RenameGroup(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	input.Name = validation.TrimAndLimit(input.Name, 80)

	if err := h.chatService.RenameGroup(userID, id, input.Name); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UnreadCount returns the caller's unread count for one chat.
// GET /chats/:chatId/unread
func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	id, err := chatID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat ID")
	}

	count, err := h.readState.UnreadCount(userID, id)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}
