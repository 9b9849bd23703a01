package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pulsechat/pulse-backend/internal/models"
	"gorm.io/gorm"
)

// memDB is the shared in-memory store behind the per-interface mock repos.
// It mirrors the SQL semantics the real repositories rely on: soft deletes,
// restore-in-place, and the guarded monotonic pointer update.
type memDB struct {
	users     map[uint]*models.User
	chats     map[uint]*models.Chat
	members   []*models.ChatMember
	messages  []*models.Message
	reactions []*models.Reaction
	receipts  []*models.ReadReceipt
	pins      []*models.PinnedMessage
	invites   []*models.FriendInvite
	friends   []*models.Friendship

	nextID uint
	clock  time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:  make(map[uint]*models.User),
		chats:  make(map[uint]*models.Chat),
		nextID: 0,
		clock:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (d *memDB) id() uint {
	d.nextID++
	return d.nextID
}

// tick returns a strictly increasing timestamp so message ordering is
// deterministic.
func (d *memDB) tick() time.Time {
	d.clock = d.clock.Add(time.Second)
	return d.clock
}

func (d *memDB) addUser(username string) *models.User {
	u := &models.User{
		ID:       d.id(),
		Username: username,
		Email:    username + "@example.com",
	}
	d.users[u.ID] = u
	return u
}

func (d *memDB) addChat(isGroup bool, name string) *models.Chat {
	c := &models.Chat{ID: d.id(), IsGroup: isGroup, CreatedAt: d.tick()}
	if name != "" {
		c.Name = &name
	}
	d.chats[c.ID] = c
	return c
}

func (d *memDB) addMember(chatID, userID uint, role models.ChatRole) *models.ChatMember {
	m := &models.ChatMember{
		ID:       d.id(),
		ChatID:   chatID,
		UserID:   userID,
		Role:     role,
		JoinedAt: d.tick(),
	}
	if u := d.users[userID]; u != nil {
		m.User = *u
	}
	d.members = append(d.members, m)
	return m
}

func (d *memDB) addMessage(chatID, senderID uint, content string) *models.Message {
	m := &models.Message{
		ID:        d.id(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: d.tick(),
	}
	d.messages = append(d.messages, m)
	return m
}

func (d *memDB) findMessage(id uint) *models.Message {
	for _, m := range d.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (d *memDB) findMember(chatID, userID uint) *models.ChatMember {
	for _, m := range d.members {
		if m.ChatID == chatID && m.UserID == userID {
			return m
		}
	}
	return nil
}

func (d *memDB) activeMember(chatID, userID uint) *models.ChatMember {
	m := d.findMember(chatID, userID)
	if m == nil || m.Deleted() {
		return nil
	}
	return m
}

// --- user repository ---

type mockUserRepo struct{ d *memDB }

func (r *mockUserRepo) Create(user *models.User) error {
	user.ID = r.d.id()
	r.d.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) FindByEmail(email string) (*models.User, error) {
	for _, u := range r.d.users {
		if u.Email == email && !u.Deleted() {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByUsername(username string) (*models.User, error) {
	for _, u := range r.d.users {
		if u.Username == username && !u.Deleted() {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByID(id uint) (*models.User, error) {
	if u, ok := r.d.users[id]; ok && !u.Deleted() {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) FindByIDs(ids []uint) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := r.d.users[id]; ok && !u.Deleted() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *mockUserRepo) Update(user *models.User) error {
	r.d.users[user.ID] = user
	return nil
}

func (r *mockUserRepo) SetOnlineStatus(userID uint, isOnline bool, lastSeen time.Time) error {
	u, ok := r.d.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsOnline = isOnline
	u.LastSeen = &lastSeen
	return nil
}

func (r *mockUserRepo) SearchUsers(query string, limit int) ([]models.User, error) {
	var out []models.User
	for _, u := range r.d.users {
		if !u.Deleted() && strings.Contains(strings.ToLower(u.Username), query) {
			out = append(out, *u)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- chat repository ---

type mockChatRepo struct{ d *memDB }

func (r *mockChatRepo) FindByID(id uint) (*models.Chat, error) {
	if c, ok := r.d.chats[id]; ok && !c.Deleted() {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockChatRepo) FindDirectChat(userA, userB uint) (*models.Chat, error) {
	for _, c := range r.d.chats {
		if c.IsGroup || c.Deleted() {
			continue
		}
		if r.d.activeMember(c.ID, userA) != nil && r.d.activeMember(c.ID, userB) != nil {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockChatRepo) CreateDirectChat(userA, userB uint) (*models.Chat, error) {
	c := r.d.addChat(false, "")
	r.d.addMember(c.ID, userA, models.RoleUser)
	r.d.addMember(c.ID, userB, models.RoleUser)
	return c, nil
}

func (r *mockChatRepo) CreateGroupChat(name string, ownerID uint, memberIDs []uint) (*models.Chat, error) {
	c := r.d.addChat(true, name)
	r.d.addMember(c.ID, ownerID, models.RoleOwner)
	for _, id := range memberIDs {
		if id != ownerID {
			r.d.addMember(c.ID, id, models.RoleUser)
		}
	}
	return c, nil
}

func (r *mockChatRepo) FindMember(chatID, userID uint) (*models.ChatMember, error) {
	if m := r.d.activeMember(chatID, userID); m != nil {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockChatRepo) FindMembers(chatID uint) ([]models.ChatMember, error) {
	var out []models.ChatMember
	for _, m := range r.d.members {
		if m.ChatID == chatID && !m.Deleted() {
			cp := *m
			if u := r.d.users[m.UserID]; u != nil {
				cp.User = *u
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *mockChatRepo) AddMember(chatID, userID uint, role models.ChatRole) (*models.ChatMember, error) {
	if m := r.d.findMember(chatID, userID); m != nil {
		if !m.Deleted() {
			return nil, gorm.ErrDuplicatedKey
		}
		m.Restore()
		m.Role = role
		m.JoinedAt = r.d.tick()
		return m, nil
	}
	return r.d.addMember(chatID, userID, role), nil
}

func (r *mockChatRepo) RemoveMember(chatID, userID uint) error {
	if m := r.d.activeMember(chatID, userID); m != nil {
		m.MarkDeleted(r.d.tick())
	}
	return nil
}

func (r *mockChatRepo) UpdateMemberRole(chatID, userID uint, role models.ChatRole) error {
	if m := r.d.activeMember(chatID, userID); m != nil {
		m.Role = role
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *mockChatRepo) SwapOwner(chatID, newOwnerID, oldOwnerID uint) error {
	newOwner := r.d.activeMember(chatID, newOwnerID)
	if newOwner == nil {
		return gorm.ErrRecordNotFound
	}
	newOwner.Role = models.RoleOwner
	if old := r.d.activeMember(chatID, oldOwnerID); old != nil {
		old.Role = models.RoleModerator
	}
	return nil
}

func (r *mockChatRepo) PromoteAndRemove(chatID, promoteUserID, leavingUserID uint) error {
	heir := r.d.activeMember(chatID, promoteUserID)
	if heir == nil {
		return gorm.ErrRecordNotFound
	}
	heir.Role = models.RoleOwner
	if leaving := r.d.activeMember(chatID, leavingUserID); leaving != nil {
		leaving.MarkDeleted(r.d.tick())
	}
	return nil
}

func (r *mockChatRepo) SoftDeleteChat(chatID uint) error {
	now := r.d.tick()
	for _, m := range r.d.members {
		if m.ChatID == chatID && !m.Deleted() {
			m.MarkDeleted(now)
		}
	}
	if c, ok := r.d.chats[chatID]; ok {
		c.MarkDeleted(now)
	}
	return nil
}

func (r *mockChatRepo) ActiveMemberCount(chatID uint) (int64, error) {
	var count int64
	for _, m := range r.d.members {
		if m.ChatID == chatID && !m.Deleted() {
			count++
		}
	}
	return count, nil
}

func (r *mockChatRepo) LongestTenuredMember(chatID, excludeUserID uint) (*models.ChatMember, error) {
	var best *models.ChatMember
	for _, m := range r.d.members {
		if m.ChatID != chatID || m.UserID == excludeUserID || m.Deleted() {
			continue
		}
		if best == nil || m.JoinedAt.Before(best.JoinedAt) {
			best = m
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *mockChatRepo) ListUserChats(userID uint) ([]models.Chat, error) {
	var out []models.Chat
	for _, m := range r.d.members {
		if m.UserID != userID || m.Deleted() {
			continue
		}
		if c, ok := r.d.chats[m.ChatID]; ok && !c.Deleted() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *mockChatRepo) UpdateName(chatID uint, name string) error {
	if c, ok := r.d.chats[chatID]; ok && !c.Deleted() {
		c.Name = &name
	}
	return nil
}

// --- message repository ---

type mockMessageRepo struct{ d *memDB }

func (r *mockMessageRepo) Create(message *models.Message) error {
	message.ID = r.d.id()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.d.tick()
	}
	r.d.messages = append(r.d.messages, message)
	if c, ok := r.d.chats[message.ChatID]; ok {
		c.UpdatedAt = message.CreatedAt
	}
	return nil
}

func (r *mockMessageRepo) FindByID(id uint) (*models.Message, error) {
	if m := r.d.findMessage(id); m != nil {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockMessageRepo) FindByIDs(ids []uint) ([]models.Message, error) {
	var out []models.Message
	for _, id := range ids {
		if m := r.d.findMessage(id); m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *mockMessageRepo) chatMessages(chatID uint) []*models.Message {
	var out []*models.Message
	for _, m := range r.d.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *mockMessageRepo) FindPage(chatID uint, limit, offset int) ([]models.Message, error) {
	all := r.chatMessages(chatID)
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	out := make([]models.Message, 0, len(all))
	for _, m := range all {
		out = append(out, *m)
	}
	return out, nil
}

func (r *mockMessageRepo) CountByChat(chatID uint) (int64, error) {
	return int64(len(r.chatMessages(chatID))), nil
}

func (r *mockMessageRepo) FindReplies(messageID uint) ([]models.Message, error) {
	var out []models.Message
	for _, m := range r.d.messages {
		if m.ReplyToID != nil && *m.ReplyToID == messageID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *mockMessageRepo) Search(chatID uint, query string, limit, offset int) ([]models.Message, error) {
	var out []models.Message
	all := r.chatMessages(chatID)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Deleted() || !strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
			continue
		}
		out = append(out, *m)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *mockMessageRepo) Update(message *models.Message) error {
	if m := r.d.findMessage(message.ID); m != nil {
		*m = *message
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *mockMessageRepo) SoftDelete(messageID uint) error {
	if m := r.d.findMessage(messageID); m != nil && !m.Deleted() {
		m.Content = ""
		m.MarkDeleted(r.d.tick())
	}
	return nil
}

func (r *mockMessageRepo) LatestInChat(chatID uint) (*models.Message, error) {
	all := r.chatMessages(chatID)
	if len(all) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return all[len(all)-1], nil
}

// --- reaction repository ---

type mockReactionRepo struct{ d *memDB }

func (r *mockReactionRepo) FindTriple(messageID, userID uint, emoji string) (*models.Reaction, error) {
	for _, re := range r.d.reactions {
		if re.MessageID == messageID && re.UserID == userID && re.Emoji == emoji {
			return re, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockReactionRepo) Create(reaction *models.Reaction) error {
	reaction.ID = r.d.id()
	reaction.CreatedAt = r.d.tick()
	r.d.reactions = append(r.d.reactions, reaction)
	return nil
}

func (r *mockReactionRepo) Restore(id uint) error {
	for _, re := range r.d.reactions {
		if re.ID == id {
			re.Restore()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockReactionRepo) SoftDelete(id uint) error {
	for _, re := range r.d.reactions {
		if re.ID == id {
			re.MarkDeleted(r.d.tick())
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockReactionRepo) ListByMessageIDs(messageIDs []uint) ([]models.Reaction, error) {
	ids := make(map[uint]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	var out []models.Reaction
	for _, re := range r.d.reactions {
		if ids[re.MessageID] && !re.Deleted() {
			out = append(out, *re)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- read receipt repository ---

type mockReceiptRepo struct{ d *memDB }

func (r *mockReceiptRepo) findReceipt(messageID, userID uint) *models.ReadReceipt {
	for _, rr := range r.d.receipts {
		if rr.MessageID == messageID && rr.UserID == userID {
			return rr
		}
	}
	return nil
}

func (r *mockReceiptRepo) AdvancePointer(chatID, userID, messageID uint, readAt time.Time) (bool, error) {
	member := r.d.activeMember(chatID, userID)
	if member == nil {
		return false, nil
	}
	target := r.d.findMessage(messageID)
	if target == nil {
		return false, fmt.Errorf("message %d not found", messageID)
	}
	if member.LastReadMessageID != nil {
		current := r.d.findMessage(*member.LastReadMessageID)
		if current != nil && !current.CreatedAt.Before(target.CreatedAt) {
			return false, nil
		}
	}
	member.LastReadMessageID = &target.ID
	member.LastReadAt = &readAt

	// Backfill receipts for every foreign message up to the target; only the
	// target's receipt takes the new read_at.
	for _, m := range r.d.messages {
		if m.ChatID != chatID || m.SenderID == userID || m.Deleted() {
			continue
		}
		if m.CreatedAt.After(target.CreatedAt) {
			continue
		}
		if existing := r.findReceipt(m.ID, userID); existing != nil {
			if m.ID == messageID {
				existing.ReadAt = readAt
				existing.Restore()
			}
			continue
		}
		r.d.receipts = append(r.d.receipts, &models.ReadReceipt{
			ID:        r.d.id(),
			MessageID: m.ID,
			UserID:    userID,
			ReadAt:    readAt,
			CreatedAt: readAt,
		})
	}
	return true, nil
}

func (r *mockReceiptRepo) ListByMessage(messageID uint) ([]models.ReadReceipt, error) {
	var out []models.ReadReceipt
	for _, rr := range r.d.receipts {
		if rr.MessageID == messageID && !rr.Deleted() {
			cp := *rr
			if u := r.d.users[rr.UserID]; u != nil {
				cp.User = *u
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadAt.After(out[j].ReadAt) })
	return out, nil
}

func (r *mockReceiptRepo) ListByMessageIDs(messageIDs []uint) ([]models.ReadReceipt, error) {
	ids := make(map[uint]bool, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = true
	}
	var out []models.ReadReceipt
	for _, rr := range r.d.receipts {
		if ids[rr.MessageID] && !rr.Deleted() {
			out = append(out, *rr)
		}
	}
	return out, nil
}

func (r *mockReceiptRepo) UnreadCount(chatID, userID uint) (int64, error) {
	var count int64
	for _, m := range r.d.messages {
		if m.ChatID != chatID || m.SenderID == userID || m.Deleted() {
			continue
		}
		if rr := r.findReceipt(m.ID, userID); rr == nil || rr.Deleted() {
			count++
		}
	}
	return count, nil
}

// --- pin repository ---

type mockPinRepo struct{ d *memDB }

func (r *mockPinRepo) findPin(chatID, messageID uint) *models.PinnedMessage {
	for _, p := range r.d.pins {
		if p.ChatID == chatID && p.MessageID == messageID {
			return p
		}
	}
	return nil
}

func (r *mockPinRepo) FindActive(chatID, messageID uint) (*models.PinnedMessage, error) {
	if p := r.findPin(chatID, messageID); p != nil && !p.Deleted() {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockPinRepo) Pin(chatID, messageID, pinnedBy uint) (*models.PinnedMessage, error) {
	if p := r.findPin(chatID, messageID); p != nil {
		if !p.Deleted() {
			return nil, gorm.ErrDuplicatedKey
		}
		p.Restore()
		p.PinnedBy = pinnedBy
		p.CreatedAt = r.d.tick()
		return p, nil
	}
	p := &models.PinnedMessage{
		ID:        r.d.id(),
		ChatID:    chatID,
		MessageID: messageID,
		PinnedBy:  pinnedBy,
		CreatedAt: r.d.tick(),
	}
	r.d.pins = append(r.d.pins, p)
	return p, nil
}

func (r *mockPinRepo) Unpin(chatID, messageID uint) error {
	if p := r.findPin(chatID, messageID); p != nil && !p.Deleted() {
		p.MarkDeleted(r.d.tick())
	}
	return nil
}

func (r *mockPinRepo) ListByChat(chatID uint) ([]models.PinnedMessage, error) {
	var out []models.PinnedMessage
	for _, p := range r.d.pins {
		if p.ChatID == chatID && !p.Deleted() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *mockPinRepo) PinnedMessageIDs(chatID uint) ([]uint, error) {
	var out []uint
	for _, p := range r.d.pins {
		if p.ChatID == chatID && !p.Deleted() {
			out = append(out, p.MessageID)
		}
	}
	return out, nil
}

// --- friend repository ---

type mockFriendRepo struct{ d *memDB }

func (r *mockFriendRepo) CreateInvite(invite *models.FriendInvite) error {
	invite.ID = r.d.id()
	invite.CreatedAt = r.d.tick()
	r.d.invites = append(r.d.invites, invite)
	return nil
}

func (r *mockFriendRepo) FindInviteByID(id uint) (*models.FriendInvite, error) {
	for _, inv := range r.d.invites {
		if inv.ID == id && !inv.Deleted() {
			if u := r.d.users[inv.SenderID]; u != nil {
				inv.Sender = *u
			}
			if u := r.d.users[inv.RecipientID]; u != nil {
				inv.Recipient = *u
			}
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockFriendRepo) FindPendingBetween(userA, userB uint) (*models.FriendInvite, error) {
	for _, inv := range r.d.invites {
		if inv.Deleted() || inv.Status != models.InvitePending {
			continue
		}
		if (inv.SenderID == userA && inv.RecipientID == userB) ||
			(inv.SenderID == userB && inv.RecipientID == userA) {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockFriendRepo) Accept(inviteID uint) (*models.Friendship, error) {
	inv, err := r.FindInviteByID(inviteID)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InviteAccepted
	a, b := models.NormalizePair(inv.SenderID, inv.RecipientID)
	for _, f := range r.d.friends {
		if f.UserAID == a && f.UserBID == b {
			f.Restore()
			return f, nil
		}
	}
	f := &models.Friendship{ID: r.d.id(), UserAID: a, UserBID: b, CreatedAt: r.d.tick()}
	r.d.friends = append(r.d.friends, f)
	return f, nil
}

func (r *mockFriendRepo) UpdateInviteStatus(inviteID uint, status models.InviteStatus) error {
	for _, inv := range r.d.invites {
		if inv.ID == inviteID {
			inv.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockFriendRepo) FindFriendship(userA, userB uint) (*models.Friendship, error) {
	a, b := models.NormalizePair(userA, userB)
	for _, f := range r.d.friends {
		if f.UserAID == a && f.UserBID == b && !f.Deleted() {
			return f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockFriendRepo) RemoveFriendship(userA, userB uint) error {
	a, b := models.NormalizePair(userA, userB)
	for _, f := range r.d.friends {
		if f.UserAID == a && f.UserBID == b && !f.Deleted() {
			f.MarkDeleted(r.d.tick())
		}
	}
	return nil
}

func (r *mockFriendRepo) ListFriends(userID uint) ([]models.User, error) {
	var out []models.User
	for _, f := range r.d.friends {
		if f.Deleted() {
			continue
		}
		var other uint
		switch userID {
		case f.UserAID:
			other = f.UserBID
		case f.UserBID:
			other = f.UserAID
		default:
			continue
		}
		if u := r.d.users[other]; u != nil && !u.Deleted() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *mockFriendRepo) ListPendingInvites(userID uint) ([]models.FriendInvite, error) {
	var out []models.FriendInvite
	for _, inv := range r.d.invites {
		if inv.Deleted() || inv.Status != models.InvitePending || inv.RecipientID != userID {
			continue
		}
		cp := *inv
		if u := r.d.users[inv.SenderID]; u != nil {
			cp.Sender = *u
		}
		if u := r.d.users[inv.RecipientID]; u != nil {
			cp.Recipient = *u
		}
		out = append(out, cp)
	}
	return out, nil
}

// --- broadcaster recorder ---

type emittedEvent struct {
	Room    string
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	events []emittedEvent
	joins  []string
	leaves []string
}

func (b *recordingBroadcaster) Emit(room, event string, payload any) {
	b.events = append(b.events, emittedEvent{Room: room, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) JoinUser(userID uint, room string) {
	b.joins = append(b.joins, fmt.Sprintf("%d:%s", userID, room))
}

func (b *recordingBroadcaster) LeaveUser(userID uint, room string) {
	b.leaves = append(b.leaves, fmt.Sprintf("%d:%s", userID, room))
}

func (b *recordingBroadcaster) eventsOf(event string) []emittedEvent {
	var out []emittedEvent
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// --- fixture ---

type fixture struct {
	db          *memDB
	broadcaster *recordingBroadcaster

	users     *mockUserRepo
	chats     *mockChatRepo
	messages  *mockMessageRepo
	reactions *mockReactionRepo
	receipts  *mockReceiptRepo
	pins      *mockPinRepo
	friendsDB *mockFriendRepo

	readState *ReadStateService
	ledger    *MessageService
	chatSvc   *ChatService
	friendSvc *FriendService
}

func newFixture() *fixture {
	d := newMemDB()
	f := &fixture{
		db:          d,
		broadcaster: &recordingBroadcaster{},
		users:       &mockUserRepo{d},
		chats:       &mockChatRepo{d},
		messages:    &mockMessageRepo{d},
		reactions:   &mockReactionRepo{d},
		receipts:    &mockReceiptRepo{d},
		pins:        &mockPinRepo{d},
		friendsDB:   &mockFriendRepo{d},
	}
	f.readState = NewReadStateService(f.chats, f.messages, f.receipts, f.users, f.broadcaster, nil)
	f.ledger = NewMessageService(f.messages, f.chats, f.reactions, f.receipts, f.pins, f.users, f.readState, f.broadcaster, nil)
	f.chatSvc = NewChatService(f.chats, f.messages, f.receipts, f.users, f.ledger, f.broadcaster, nil)
	f.friendSvc = NewFriendService(f.friendsDB, f.users, f.broadcaster)
	return f
}
