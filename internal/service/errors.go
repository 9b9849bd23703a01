package service

import (
	"errors"

	"github.com/pulsechat/pulse-backend/internal/apperrors"
	"gorm.io/gorm"
)

// orNotFound maps a gorm lookup failure to a NotFound domain error; any other
// store failure is Infrastructure (the only retryable class). Membership
// misses are deliberately reported as NotFound too, so callers cannot probe
// for the existence of chats they don't belong to.
func orNotFound(err error, code, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.NotFound, code, message)
	}
	return apperrors.Infra(err, code)
}

func infra(err error, code string) error {
	if err == nil {
		return nil
	}
	return apperrors.Infra(err, code)
}
