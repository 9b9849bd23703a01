package realtime

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gofiber/websocket/v2"
)

// MembershipSource answers membership questions for inbound client events.
// Typing relays re-validate on every event (membership can change
// mid-session), so this is queried per message, not cached at join time.
type MembershipSource interface {
	IsActiveMember(chatID, userID uint) (bool, error)
}

// MessageContext provides all dependencies needed to process a client message
type MessageContext struct {
	UserID      uint
	Username    string
	Conn        *websocket.Conn
	Hub         *Hub
	Memberships MembershipSource
}

// ClientMessage is the interface for all client->server WebSocket messages
type ClientMessage interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// inbound is the client->server wire format wrapper
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// SendError sends an error response to the client
func SendError(conn *websocket.Conn, code, message, details string) error {
	return conn.WriteJSON(ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
}

var typeRegistry = map[string]reflect.Type{}

func init() {
	RegisterType(&TypingStart{})
	RegisterType(&TypingStop{})
	RegisterType(&Ping{})
	RegisterType(&Pong{})
}

func RegisterType(msg ClientMessage) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

// Deserialize decodes a raw frame into its registered message type.
func Deserialize(data []byte) (ClientMessage, error) {
	var wrapper inbound
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	msgType, ok := typeRegistry[wrapper.Type]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", wrapper.Type)
	}

	msg := reflect.New(msgType).Interface().(ClientMessage)
	if len(wrapper.Payload) > 0 {
		if err := json.Unmarshal(wrapper.Payload, msg); err != nil {
			return nil, err
		}
	}
	return msg, nil
}
