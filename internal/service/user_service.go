package service

import (
	"strings"
	"time"

	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/cache"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/realtime"
	"github.com/pulsechat/pulse-backend/internal/repository"
)

type UserService struct {
	userRepo    repository.UserRepositoryInterface
	friends     *FriendService
	broadcaster realtime.Broadcaster
	userCache   *cache.UserCache
}

func NewUserService(
	userRepo repository.UserRepositoryInterface,
	friends *FriendService,
	broadcaster realtime.Broadcaster,
	userCache *cache.UserCache,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		friends:     friends,
		broadcaster: broadcaster,
		userCache:   userCache,
	}
}

func (s *UserService) IsUsernameAvailable(username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, apperrors.Invalidf("missing_username", "Username is required")
	}

	_, err := s.userRepo.FindByUsername(username)
	if err != nil {
		// Username not found = available
		return true, nil
	}
	return false, nil
}

func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, orNotFound(err, "user_not_found", "User not found")
	}
	return user, nil
}

func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.Invalidf("missing_username", "Username is required")
	}
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return nil, orNotFound(err, "user_not_found", "User not found")
	}
	return user, nil
}

func (s *UserService) SearchUsers(query string, limit int) ([]models.User, error) {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return []models.User{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.userRepo.SearchUsers(query, limit)
	if err != nil {
		return nil, infra(err, "search_users_failed")
	}
	return users, nil
}

// SetUserOnline marks the user online and tells their friends.
func (s *UserService) SetUserOnline(userID uint) error {
	now := time.Now()
	if err := s.userRepo.SetOnlineStatus(userID, true, now); err != nil {
		return infra(err, "set_online_failed")
	}
	_ = s.userCache.SetUserOnline(userID)
	s.emitStatus(userID, true, &now)
	return nil
}

// SetUserOffline marks the user offline, stamping last_seen.
func (s *UserService) SetUserOffline(userID uint) error {
	now := time.Now()
	if err := s.userRepo.SetOnlineStatus(userID, false, now); err != nil {
		return infra(err, "set_offline_failed")
	}
	_ = s.userCache.SetUserOffline(userID)
	s.emitStatus(userID, false, &now)
	return nil
}

// RefreshOnline extends the presence TTL. Called as client frames arrive so
// a quiet-but-connected user does not fall out of the online set.
func (s *UserService) RefreshOnline(userID uint) {
	_ = s.userCache.RefreshUserOnline(userID)
}

// OnlineCount reports how many users the presence cache currently tracks.
func (s *UserService) OnlineCount() int64 {
	count, err := s.userCache.GetOnlineCount()
	if err != nil {
		return 0
	}
	return count
}

// IsUserOnline answers from the presence cache when available, falling back
// to the persisted flag.
func (s *UserService) IsUserOnline(userID uint) bool {
	if s.userCache != nil && s.userCache.IsUserOnline(userID) {
		return true
	}
	user, err := s.userRepo.FindByID(userID)
	return err == nil && user.IsOnline
}

func (s *UserService) emitStatus(userID uint, online bool, lastSeen *time.Time) {
	friendIDs, err := s.friends.FriendIDs(userID)
	if err != nil {
		return
	}
	payload := map[string]any{
		"userId":   userID,
		"isOnline": online,
		"lastSeen": lastSeen,
	}
	for _, id := range friendIDs {
		s.broadcaster.Emit(realtime.UserRoom(id), realtime.EventUserStatus, payload)
	}
}
