package realtime

import "fmt"

// Room-scoped event names carried on the wire. Payload shapes are documented
// on the Emit call sites in the service layer.
const (
	EventMessageNew     = "message:new"
	EventMessageUpdated = "message:updated"
	EventMessageDeleted = "message:deleted"

	EventReactionAdded   = "reaction:added"
	EventReactionRemoved = "reaction:removed"

	EventMessageRead = "message:read"

	EventMessagePinned   = "message:pinned"
	EventMessageUnpinned = "message:unpinned"

	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"

	EventUserStatus = "user:status"

	EventMemberAdded   = "member:added"
	EventMemberRemoved = "member:removed"
	EventChatCreated   = "chat:created"
	EventChatUpdated   = "chat:updated"

	EventFriendInviteReceived = "friend:invite:received"
	EventFriendInviteAccepted = "friend:invite:accepted"
	EventFriendInviteRejected = "friend:invite:rejected"
	EventFriendRemoved        = "friend:removed"
)

// UserRoom is the personal room every connection of a user joins.
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ChatRoom is the shared room of a chat's current members.
func ChatRoom(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// Broadcaster is the fan-out collaborator injected into the service layer.
// Emit is fire-and-forget and must only be called after the triggering
// persistence transaction has committed. JoinUser/LeaveUser keep live
// connections' room membership in step with persisted chat membership.
type Broadcaster interface {
	Emit(room, event string, payload any)
	JoinUser(userID uint, room string)
	LeaveUser(userID uint, room string)
}
