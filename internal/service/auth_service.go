package service

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"github.com/pulsechat/pulse-backend/internal/models"
	"github.com/pulsechat/pulse-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo repository.UserRepositoryInterface
}

func NewAuthService(userRepo repository.UserRepositoryInterface) *AuthService {
	return &AuthService{userRepo: userRepo}
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

func (s *AuthService) Register(input RegisterInput) (*AuthResponse, error) {
	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, apperrors.Conflictf("email_taken", "Email already registered")
	}
	if _, err := s.userRepo.FindByUsername(input.Username); err == nil {
		return nil, apperrors.Conflictf("username_taken", "Username already taken")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, infra(err, "hash_password_failed")
	}

	user := &models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, infra(err, "create_user_failed")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, infra(err, "sign_token_failed")
	}
	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		return nil, apperrors.New(apperrors.Unauthenticated, "invalid_credentials", "Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.New(apperrors.Unauthenticated, "invalid_credentials", "Invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, infra(err, "sign_token_failed")
	}
	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(time.Hour * 24 * 7).Unix(), // 7 days
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
