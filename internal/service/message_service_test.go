package service

import (
	"errors"
	"testing"
	"time"

	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
)

func TestSendMessageReplyValidation(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	other := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	f.db.addMember(other.ID, alice.ID, models.RoleUser)

	elsewhere := f.db.addMessage(other.ID, alice.ID, "different chat")
	gone := f.db.addMessage(chat.ID, bob.ID, "soon gone")
	gone.MarkDeleted(f.db.tick())

	tests := []struct {
		name    string
		replyTo uint
	}{
		{"cross-chat target", elsewhere.ID},
		{"deleted target", gone.ID},
		{"unknown target", 9999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.replyTo
			_, err := f.ledger.SendMessage(alice.ID, chat.ID, "re", &id)
			if !errors.Is(err, apperrors.ErrNotFound) {
				t.Errorf("expected NotFound, got %v", err)
			}
		})
	}
}

func TestSendMessageEmitsToChatRoom(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)

	view, err := f.ledger.SendMessage(alice.ID, chat.ID, "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if view.SenderUsername != "alice" {
		t.Errorf("sender username = %q, want alice", view.SenderUsername)
	}
	events := f.broadcaster.eventsOf(realtime.EventMessageNew)
	if len(events) != 1 || events[0].Room != realtime.ChatRoom(chat.ID) {
		t.Fatalf("message:new events = %+v, want one to %s", events, realtime.ChatRoom(chat.ID))
	}
}

func TestEditMessageWindow(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)

	tests := []struct {
		name    string
		age     time.Duration
		wantErr bool
	}{
		{"just inside window", EditWindow - time.Second, false},
		{"just past window", EditWindow + time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := f.db.addMessage(chat.ID, alice.ID, "original")
			msg.CreatedAt = time.Now().Add(-tt.age)

			view, err := f.ledger.EditMessage(alice.ID, msg.ID, "edited")
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrValidationFailed) {
					t.Fatalf("expected ValidationFailed, got %v", err)
				}
				if msg.Content != "original" {
					t.Errorf("content changed on rejected edit: %q", msg.Content)
				}
				return
			}
			if err != nil {
				t.Fatalf("EditMessage: %v", err)
			}
			if view.Content != "edited" || !view.WasUpdated || view.EditedAt == nil {
				t.Errorf("view = content %q wasUpdated %v editedAt %v", view.Content, view.WasUpdated, view.EditedAt)
			}
		})
	}
}

func TestEditMessageSenderOnly(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	msg := f.db.addMessage(chat.ID, alice.ID, "mine")
	msg.CreatedAt = time.Now()

	_, err := f.ledger.EditMessage(bob.ID, msg.ID, "stolen")
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("expected Forbidden for non-sender edit, got %v", err)
	}
}

func TestDeleteMessageBlanksButKeepsRow(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)

	m1 := f.db.addMessage(chat.ID, alice.ID, "m1")
	m2 := f.db.addMessage(chat.ID, alice.ID, "m2")
	reply := f.db.addMessage(chat.ID, bob.ID, "replying to m2")
	reply.ReplyToID = &m2.ID
	_ = m1

	if _, err := f.ledger.DeleteMessage(alice.ID, m2.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	page, err := f.ledger.ListMessages(bob.ID, chat.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(page.Messages) != 3 {
		t.Fatalf("page = %d messages, want 3 (deleted stays addressable)", len(page.Messages))
	}

	var deleted, replyView *models.MessageView
	for i := range page.Messages {
		switch page.Messages[i].ID {
		case m2.ID:
			deleted = &page.Messages[i]
		case reply.ID:
			replyView = &page.Messages[i]
		}
	}
	if deleted == nil || !deleted.IsDeleted || deleted.Content != "" {
		t.Errorf("deleted view = %+v, want empty content with isDeleted", deleted)
	}
	if replyView == nil || replyView.ReplyTo == nil {
		t.Fatal("reply preview must not be omitted when the target is deleted")
	}
	if replyView.ReplyTo.Content != "" {
		t.Errorf("reply preview content = %q, want blanked", replyView.ReplyTo.Content)
	}

	events := f.broadcaster.eventsOf(realtime.EventMessageDeleted)
	if len(events) != 1 {
		t.Errorf("message:deleted events = %d, want 1", len(events))
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	msg := f.db.addMessage(chat.ID, alice.ID, "mine")

	if _, err := f.ledger.DeleteMessage(bob.ID, msg.ID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}
}

func TestForwardMessageSnapshotsOrigin(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	source := f.db.addChat(true, "old name")
	target := f.db.addChat(false, "")
	f.db.addMember(source.ID, alice.ID, models.RoleOwner)
	f.db.addMember(source.ID, bob.ID, models.RoleUser)
	f.db.addMember(target.ID, alice.ID, models.RoleUser)
	f.db.addMember(target.ID, bob.ID, models.RoleUser)

	orig := f.db.addMessage(source.ID, bob.ID, "worth sharing")

	view, err := f.ledger.ForwardMessage(alice.ID, target.ID, orig.ID)
	if err != nil {
		t.Fatalf("ForwardMessage: %v", err)
	}
	if view.ForwardedFrom == nil {
		t.Fatal("forwarded view missing provenance")
	}
	if view.ForwardedFrom.ChatName != "old name" || view.ForwardedFrom.SenderUsername != "bob" {
		t.Errorf("provenance = %+v", view.ForwardedFrom)
	}

	// Renaming the source chat afterwards must not rewrite the snapshot.
	renamed := "new name"
	source.Name = &renamed
	page, err := f.ledger.ListMessages(alice.ID, target.ID, 50, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if got := page.Messages[len(page.Messages)-1].ForwardedFrom.ChatName; got != "old name" {
		t.Errorf("snapshot chat name = %q, want old name", got)
	}
}

func TestForwardOfForwardKeepsDeepestOrigin(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	a := f.db.addChat(true, "origin chat")
	b := f.db.addChat(true, "middle chat")
	c := f.db.addChat(true, "final chat")
	for _, chat := range []*models.Chat{a, b, c} {
		f.db.addMember(chat.ID, alice.ID, models.RoleOwner)
	}
	orig := f.db.addMessage(a.ID, alice.ID, "root")

	first, err := f.ledger.ForwardMessage(alice.ID, b.ID, orig.ID)
	if err != nil {
		t.Fatalf("first forward: %v", err)
	}
	second, err := f.ledger.ForwardMessage(alice.ID, c.ID, first.ID)
	if err != nil {
		t.Fatalf("second forward: %v", err)
	}
	if second.ForwardedFrom == nil || second.ForwardedFrom.MessageID != orig.ID {
		t.Errorf("provenance = %+v, want original message %d", second.ForwardedFrom, orig.ID)
	}
	if second.ForwardedFrom.ChatName != "origin chat" {
		t.Errorf("provenance chat = %q, want origin chat", second.ForwardedFrom.ChatName)
	}
}

func TestForwardRequiresBothMemberships(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	source := f.db.addChat(false, "")
	target := f.db.addChat(false, "")
	f.db.addMember(source.ID, alice.ID, models.RoleUser)
	f.db.addMember(target.ID, bob.ID, models.RoleUser)
	msg := f.db.addMessage(source.ID, alice.ID, "hi")

	// alice is not in the target chat.
	if _, err := f.ledger.ForwardMessage(alice.ID, target.ID, msg.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound without target membership, got %v", err)
	}
	// bob cannot see the source chat.
	if _, err := f.ledger.ForwardMessage(bob.ID, target.ID, msg.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound without source membership, got %v", err)
	}
}

func TestReactionIdempotence(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	msg := f.db.addMessage(chat.ID, alice.ID, "react to me")

	if _, err := f.ledger.AddReaction(bob.ID, msg.ID, "👍"); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := f.ledger.AddReaction(bob.ID, msg.ID, "👍"); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("duplicate add: expected Conflict, got %v", err)
	}
	if _, err := f.ledger.RemoveReaction(bob.ID, msg.ID, "👍"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.ledger.RemoveReaction(bob.ID, msg.ID, "👍"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("double remove: expected NotFound, got %v", err)
	}

	view, err := f.ledger.AddReaction(bob.ID, msg.ID, "👍")
	if err != nil {
		t.Fatalf("re-add after remove: %v", err)
	}
	if len(view.Reactions) != 1 {
		t.Fatalf("reaction groups = %d, want 1", len(view.Reactions))
	}
	if g := view.Reactions[0]; g.Emoji != "👍" || g.Count != 1 || len(g.UserIDs) != 1 {
		t.Errorf("group = %+v, want single 👍 from bob", g)
	}
}

func TestReactionGrouping(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	carol := f.db.addUser("carol")
	chat := f.db.addChat(true, "team")
	f.db.addMember(chat.ID, alice.ID, models.RoleOwner)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	f.db.addMember(chat.ID, carol.ID, models.RoleUser)
	msg := f.db.addMessage(chat.ID, alice.ID, "popular")

	if _, err := f.ledger.AddReaction(bob.ID, msg.ID, "🔥"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.AddReaction(carol.ID, msg.ID, "🔥"); err != nil {
		t.Fatal(err)
	}
	view, err := f.ledger.AddReaction(alice.ID, msg.ID, "👍")
	if err != nil {
		t.Fatal(err)
	}

	if len(view.Reactions) != 2 {
		t.Fatalf("groups = %d, want 2", len(view.Reactions))
	}
	counts := map[string]int{}
	for _, g := range view.Reactions {
		counts[g.Emoji] = g.Count
	}
	if counts["🔥"] != 2 || counts["👍"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestPinLifecycle(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)
	msg := f.db.addMessage(chat.ID, alice.ID, "important")

	pin, err := f.ledger.PinMessage(bob.ID, msg.ID)
	if err != nil {
		t.Fatalf("PinMessage: %v", err)
	}
	if pin.Message.ID != msg.ID || pin.PinnedBy != bob.ID {
		t.Errorf("pin = %+v", pin)
	}

	if _, err := f.ledger.PinMessage(alice.ID, msg.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("double pin: expected Conflict, got %v", err)
	}

	pins, err := f.ledger.ListPinnedMessages(alice.ID, chat.ID)
	if err != nil {
		t.Fatalf("ListPinnedMessages: %v", err)
	}
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1", len(pins))
	}

	page, _ := f.ledger.ListMessages(alice.ID, chat.ID, 50, 0)
	if !page.Messages[len(page.Messages)-1].IsPinned {
		t.Error("message view should carry isPinned")
	}

	if err := f.ledger.UnpinMessage(alice.ID, msg.ID); err != nil {
		t.Fatalf("UnpinMessage: %v", err)
	}
	pins, _ = f.ledger.ListPinnedMessages(alice.ID, chat.ID)
	if len(pins) != 0 {
		t.Errorf("pins after unpin = %d, want 0", len(pins))
	}
}

func TestSearchMessages(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	bob := f.db.addUser("bob")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	f.db.addMember(chat.ID, bob.ID, models.RoleUser)

	f.db.addMessage(chat.ID, alice.ID, "deploy friday")
	gone := f.db.addMessage(chat.ID, alice.ID, "deploy monday")
	f.db.addMessage(chat.ID, alice.ID, "lunch?")
	gone.MarkDeleted(f.db.tick())

	views, err := f.ledger.SearchMessages(bob.ID, chat.ID, "deploy", 20, 0)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("results = %d, want 1 (deleted excluded)", len(views))
	}

	// Searching is a read without acknowledgement: the pointer stays put.
	member := f.db.activeMember(chat.ID, bob.ID)
	if member.LastReadMessageID != nil {
		t.Errorf("pointer = %v, want nil after search", *member.LastReadMessageID)
	}
}

func TestListMessagesClampsLimit(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)
	for i := 0; i < 3; i++ {
		f.db.addMessage(chat.ID, alice.ID, "x")
	}

	for _, limit := range []int{0, -5, 1000} {
		page, err := f.ledger.ListMessages(alice.ID, chat.ID, limit, 0)
		if err != nil {
			t.Fatalf("ListMessages(limit=%d): %v", limit, err)
		}
		if len(page.Messages) != 3 {
			t.Errorf("limit %d: got %d messages, want 3", limit, len(page.Messages))
		}
	}
}

func TestListMessagesNonMember(t *testing.T) {
	f := newFixture()
	alice := f.db.addUser("alice")
	eve := f.db.addUser("eve")
	chat := f.db.addChat(false, "")
	f.db.addMember(chat.ID, alice.ID, models.RoleUser)

	if _, err := f.ledger.ListMessages(eve.ID, chat.ID, 50, 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound for non-member, got %v", err)
	}
}
