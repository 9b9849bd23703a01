package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pulsechat/pulse-backend/internal/httpx"
	"github.com/pulsechat/pulse-backend/internal/service"
)

type FriendHandler struct {
	friendService *service.FriendService
}

func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

// SendInvite sends a friend invite.
// POST /friends/invites
func (h *FriendHandler) SendInvite(c *fiber.Ctx) error {
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

	invite, err := h.friendService.SendInvite(userID, input.UserID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invite": invite})
}

// AcceptInvite accepts a pending invite.
// POST /friends/invites/:inviteId/accept
func (h *FriendHandler) AcceptInvite(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	inviteID, err := c.ParamsInt("inviteId")
	if err != nil || inviteID <= 0 {
		return httpx.BadRequest(c, "invalid_invite_id", "Invalid invite ID")
	}

	if err := h.friendService.AcceptInvite(userID, uint(inviteID)); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RejectInvite declines a pending invite.
// POST /friends/invites/:inviteId/reject
func (h *FriendHandler) RejectInvite(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	inviteID, err := c.ParamsInt("inviteId")
	if err != nil || inviteID <= 0 {
		return httpx.BadRequest(c, "invalid_invite_id", "Invalid invite ID")
	}

	if err := h.friendService.RejectInvite(userID, uint(inviteID)); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListInvites lists invites awaiting the caller's decision.
// GET /friends/invites
func (h *FriendHandler) ListInvites(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	invites, err := h.friendService.ListPendingInvites(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"invites": invites})
}

// ListFriends lists the caller's friends.
// GET /friends
func (h *FriendHandler) ListFriends(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	friends, err := h.friendService.ListFriends(userID)
	if err != nil {
		return httpx.FromError(c, err)
	}
	return c.JSON(fiber.Map{"friends": friends})
}

// RemoveFriend ends a friendship.
// DELETE /friends/:userId
func (h *FriendHandler) RemoveFriend(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	friendID, err := c.ParamsInt("userId")
	if err != nil || friendID <= 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.friendService.RemoveFriend(userID, uint(friendID)); err != nil {
		return httpx.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
