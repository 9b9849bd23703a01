package service

import (
	"github.com/pulsechat/pulse-backend/internal/models"
)

// buildViews enriches a page of messages from one chat into the wire shape:
// sender names, reply previews, forwarding provenance, reaction aggregation,
// pin flags and (optionally) visible readers. Everything is batch-loaded once
// per call and joined in memory; no per-message queries.
func (s *MessageService) buildViews(chatID uint, messages []models.Message, includeReads bool) ([]models.MessageView, error) {
	views := make([]models.MessageView, 0, len(messages))
	if len(messages) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(messages))
	byID := make(map[uint]*models.Message, len(messages))
	for i := range messages {
		ids = append(ids, messages[i].ID)
		byID[messages[i].ID] = &messages[i]
	}

	// One membership load per call: usernames and read pointers for everyone
	// currently in the chat.
	memberList, err := s.chatRepo.FindMembers(chatID)
	if err != nil {
		return nil, infra(err, "load_members_failed")
	}
	members := make(map[uint]models.ChatMember, len(memberList))
	for _, m := range memberList {
		members[m.UserID] = m
	}

	reactions, err := s.reactionRepo.ListByMessageIDs(ids)
	if err != nil {
		return nil, infra(err, "load_reactions_failed")
	}
	reactionsByMessage := groupReactions(reactions)

	var receipts []models.ReadReceipt
	if includeReads {
		receipts, err = s.receiptRepo.ListByMessageIDs(ids)
		if err != nil {
			return nil, infra(err, "load_receipts_failed")
		}
	}

	pinnedIDs, err := s.pinRepo.PinnedMessageIDs(chatID)
	if err != nil {
		return nil, infra(err, "load_pins_failed")
	}
	pinned := make(map[uint]bool, len(pinnedIDs))
	for _, id := range pinnedIDs {
		pinned[id] = true
	}

	// Reply targets and forward origins outside the page need one extra fetch.
	var extraIDs []uint
	for i := range messages {
		if rid := messages[i].ReplyToID; rid != nil && byID[*rid] == nil {
			extraIDs = append(extraIDs, *rid)
		}
		if fid := messages[i].ForwardedFromMessageID; fid != nil && byID[*fid] == nil {
			extraIDs = append(extraIDs, *fid)
		}
	}
	extra, err := s.messageRepo.FindByIDs(extraIDs)
	if err != nil {
		return nil, infra(err, "load_linked_messages_failed")
	}
	for i := range extra {
		byID[extra[i].ID] = &extra[i]
	}

	// Usernames for senders outside the current member set (departed members,
	// forward origins from other chats).
	usernames := make(map[uint]string, len(members))
	for id, m := range members {
		usernames[id] = m.User.Username
	}
	var missing []uint
	need := func(userID uint) {
		if _, ok := usernames[userID]; !ok {
			missing = append(missing, userID)
			usernames[userID] = "" // dedupe
		}
	}
	for _, m := range byID {
		need(m.SenderID)
	}
	if len(missing) > 0 {
		users, err := s.userRepo.FindByIDs(missing)
		if err != nil {
			return nil, infra(err, "load_senders_failed")
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}

	for i := range messages {
		m := &messages[i]
		view := models.MessageView{
			ID:             m.ID,
			ChatID:         m.ChatID,
			SenderID:       m.SenderID,
			SenderUsername: usernames[m.SenderID],
			Content:        m.VisibleContent(),
			WasUpdated:     m.WasUpdated,
			EditedAt:       m.EditedAt,
			CreatedAt:      m.CreatedAt,
			UpdatedAt:      m.UpdatedAt,
			Reactions:      reactionsByMessage[m.ID],
			IsPinned:       pinned[m.ID],
			IsDeleted:      m.Deleted(),
		}
		if view.Reactions == nil {
			view.Reactions = []models.ReactionGroup{}
		}

		if m.ReplyToID != nil {
			if target := byID[*m.ReplyToID]; target != nil {
				view.ReplyTo = &models.ReplyPreview{
					ID:             target.ID,
					Content:        target.VisibleContent(),
					SenderUsername: usernames[target.SenderID],
				}
			}
		}

		if m.ForwardedFromMessageID != nil {
			info := &models.ForwardInfo{
				MessageID: *m.ForwardedFromMessageID,
			}
			if m.ForwardedFromChatID != nil {
				info.ChatID = *m.ForwardedFromChatID
			}
			if m.ForwardedFromChatName != nil {
				info.ChatName = *m.ForwardedFromChatName
			}
			if origin := byID[*m.ForwardedFromMessageID]; origin != nil {
				info.SenderUsername = usernames[origin.SenderID]
				info.OriginalCreatedAt = origin.CreatedAt
			}
			view.ForwardedFrom = info
		}

		if includeReads {
			view.Reads = currentReads(m.ID, receipts, members)
		}

		views = append(views, view)
	}
	return views, nil
}

// buildView enriches a single message.
func (s *MessageService) buildView(message *models.Message, includeReads bool) (*models.MessageView, error) {
	views, err := s.buildViews(message.ChatID, []models.Message{*message}, includeReads)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// groupReactions aggregates active reactions by message and emoji, keeping
// first-seen emoji order stable.
func groupReactions(reactions []models.Reaction) map[uint][]models.ReactionGroup {
	grouped := make(map[uint][]models.ReactionGroup)
	index := make(map[uint]map[string]int)
	for _, r := range reactions {
		if index[r.MessageID] == nil {
			index[r.MessageID] = make(map[string]int)
		}
		i, ok := index[r.MessageID][r.Emoji]
		if !ok {
			grouped[r.MessageID] = append(grouped[r.MessageID], models.ReactionGroup{Emoji: r.Emoji})
			i = len(grouped[r.MessageID]) - 1
			index[r.MessageID][r.Emoji] = i
		}
		group := &grouped[r.MessageID][i]
		group.Count++
		group.UserIDs = append(group.UserIDs, r.UserID)
	}
	return grouped
}
