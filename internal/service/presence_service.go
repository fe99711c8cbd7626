package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"group-chat/internal/domain"
	"group-chat/internal/repository"
)

// PresenceService maneja las transiciones online/offline de los usuarios.
// Las transiciones explícitas narran un mensaje de sistema en el feed; el
// sweep de staleness es silencioso.
type PresenceService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	messages    repository.MessageRepository
	staleWindow time.Duration
}

var ErrPresenceNotConfigured = errors.New("presence service not configured")

const defaultStaleWindow = 5 * time.Minute

func NewPresenceService(logger *zap.Logger, users repository.UserRepository, messages repository.MessageRepository, staleWindow time.Duration) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleWindow <= 0 {
		staleWindow = defaultStaleWindow
	}
	return &PresenceService{
		logger:      logger,
		users:       users,
		messages:    messages,
		staleWindow: staleWindow,
	}
}

// SetOnline marca al usuario online y anuncia su llegada en el feed.
func (s *PresenceService) SetOnline(ctx context.Context, userID int64) error {
	return s.transition(ctx, userID, true)
}

// SetOffline marca al usuario offline y anuncia su salida en el feed.
func (s *PresenceService) SetOffline(ctx context.Context, userID int64) error {
	return s.transition(ctx, userID, false)
}

func (s *PresenceService) transition(ctx context.Context, userID int64, online bool) error {
	if s == nil || s.users == nil || s.messages == nil {
		return ErrPresenceNotConfigured
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.users.SetPresence(ctx, userID, online, now); err != nil {
		return err
	}

	text := fmt.Sprintf("%s joined the chat!", user.DisplayName)
	if !online {
		text = fmt.Sprintf("%s left the chat.", user.DisplayName)
	}
	_, err = s.messages.Append(ctx, domain.Message{
		AuthorID:  userID,
		Text:      text,
		Kind:      domain.KindSystem,
		CreatedAt: now,
	})
	return err
}

// SweepStale fuerza offline a los usuarios online sin señales recientes.
// No narra nada en el feed: solo las transiciones explícitas hablan.
func (s *PresenceService) SweepStale(ctx context.Context) (int64, error) {
	if s == nil || s.users == nil {
		return 0, ErrPresenceNotConfigured
	}
	cutoff := time.Now().UTC().Add(-s.staleWindow)
	return s.users.SweepStale(ctx, cutoff)
}

// RunSweeper ejecuta el sweep en un ticker hasta que el contexto se cancele.
// Un fallo de sweep se loguea y se reintenta en el próximo tick; la
// corrección de staleness es best-effort.
func (s *PresenceService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.SweepStale(ctx)
			if err != nil {
				s.logger.Warn("presence sweep failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				s.logger.Info("presence sweep", zap.Int64("forced_offline", swept))
			}
		}
	}
}
