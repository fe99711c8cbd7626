package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"group-chat/internal/domain"
	"group-chat/internal/repository"
)

// UserService resuelve display names a identidades de usuario.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

var (
	ErrUserNotConfigured  = errors.New("user service not configured")
	ErrDisplayNameInvalid = errors.New("display name invalid")
)

const (
	minDisplayNameLength = 3
	maxDisplayNameLength = 50
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{logger: logger, users: users}
}

// Login normaliza el display name y devuelve el usuario, creándolo si es
// nuevo. El nombre se limpia de markup antes de validar su longitud.
func (s *UserService) Login(ctx context.Context, displayName string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrUserNotConfigured
	}

	name := strings.TrimSpace(htmlTagPattern.ReplaceAllString(displayName, ""))
	length := len([]rune(name))
	if length < minDisplayNameLength || length > maxDisplayNameLength {
		return domain.User{}, ErrDisplayNameInvalid
	}

	user, err := s.users.GetOrCreateByName(ctx, name)
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("user login", zap.Int64("user_id", user.ID), zap.String("display_name", user.DisplayName))
	return user, nil
}
