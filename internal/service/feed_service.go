package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"group-chat/internal/domain"
	"group-chat/internal/repository"
)

// FeedService encapsula el append y el fetch por cursor contra el log
// de mensajes. Es la única puerta de escritura para mensajes de usuario.
type FeedService struct {
	repo repository.MessageRepository
}

var (
	ErrFeedNotConfigured = errors.New("feed service not configured")
	ErrEmptyMessage      = errors.New("empty message")
	ErrMessageTooLong    = errors.New("message too long")
)

const (
	// MaxMessageLength limita el texto de un mensaje de usuario.
	MaxMessageLength = 1500
	// MaxFetchLimit es el tope de filas por página del feed.
	MaxFetchLimit = 100
)

func NewFeedService(repo repository.MessageRepository) *FeedService {
	return &FeedService{repo: repo}
}

// Send valida y persiste un mensaje de usuario, devolviendo el id asignado.
// Un mensaje sin texto y sin adjunto se rechaza con ErrEmptyMessage.
func (s *FeedService) Send(ctx context.Context, authorID int64, text string, att *domain.Attachment) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, ErrFeedNotConfigured
	}

	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return 0, ErrEmptyMessage
	}
	if len([]rune(text)) > MaxMessageLength {
		return 0, ErrMessageTooLong
	}

	msg := domain.Message{
		AuthorID:   authorID,
		Text:       text,
		Attachment: att,
		Kind:       domain.KindUser,
		CreatedAt:  time.Now().UTC(),
	}
	return s.repo.Append(ctx, msg)
}

// Fetch devuelve las filas con id > afterID en orden ascendente. El limit
// se recorta a MaxFetchLimit; un cliente atrasado más de una página debe
// volver a pedir con el cursor avanzado.
func (s *FeedService) Fetch(ctx context.Context, afterID int64, limit int) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrFeedNotConfigured
	}
	if afterID < 0 {
		afterID = 0
	}
	if limit <= 0 || limit > MaxFetchLimit {
		limit = MaxFetchLimit
	}
	return s.repo.ListAfter(ctx, afterID, limit)
}
