package handlers

import (
	"log"
	"os"

	"github.com/gofiber/websocket/v2"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/service"
)

type WebSocketHandler struct {
	hub         *realtime.Hub
	chatService *service.ChatService
	userService *service.UserService
}

func NewWebSocketHandler(hub *realtime.Hub, chatService *service.ChatService, userService *service.UserService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		chatService: chatService,
		userService: userService,
	}
}

// HandleWebSocket runs one client connection: register, recompute the room
// join set from current memberships, then pump inbound frames until the
// connection dies.
func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	client := h.hub.Register(userID, c)

	// The join set is recomputed from the database on every connect; room
	// membership is never carried over from a previous session.
	h.hub.Join(client.ID, realtime.UserRoom(userID))
	chatIDs, err := h.chatService.ActiveChatIDs(userID)
	if err != nil {
		log.Printf("Failed to load chats for user %d: %v", userID, err)
		h.hub.Unregister(client.ID)
		c.Close()
		return
	}
	for _, chatID := range chatIDs {
		h.hub.Join(client.ID, realtime.ChatRoom(chatID))
	}

	go func() {
		if err := h.userService.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online: %v", userID, err)
		}
	}()

	defer func() {
		h.hub.Unregister(client.ID)
		// Another connection of the same user may still be live.
		if !h.hub.IsOnline(userID) {
			go func() {
				if err := h.userService.SetUserOffline(userID); err != nil {
					log.Printf("Failed to set user %d offline: %v", userID, err)
				}
			}()
		}
	}()

	username := ""
	if user, err := h.userService.GetUserByID(userID); err == nil {
		username = user.Username
	}

	ctx := &realtime.MessageContext{
		UserID:      userID,
		Username:    username,
		Conn:        c,
		Hub:         h.hub,
		Memberships: h.chatService,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		h.userService.RefreshOnline(userID)

		msg, err := realtime.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			realtime.SendError(c, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			realtime.SendError(c, "processing_failed", "Failed to process message", err.Error())
		}
	}
}
