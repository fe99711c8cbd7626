package http

import (
	"errors"
	"html"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"group-chat/internal/domain"
	"group-chat/internal/service"
)

// FeedHandler mantiene dependencias para los endpoints del feed y presencia.
type FeedHandler struct {
	logger      *zap.Logger
	feedSvc     *service.FeedService
	presenceSvc *service.PresenceService
	rateLimiter service.SendRateLimiter
}

func NewFeedHandler(logger *zap.Logger, feedSvc *service.FeedService, presenceSvc *service.PresenceService, rateLimiter service.SendRateLimiter) *FeedHandler {
	return &FeedHandler{
		logger:      logger,
		feedSvc:     feedSvc,
		presenceSvc: presenceSvc,
		rateLimiter: rateLimiter,
	}
}

// feedRow es la vista de un mensaje tal como la consume el cliente:
// texto y nombre ya escapados, is_own calculado contra el caller.
type feedRow struct {
	ID               int64     `json:"id"`
	AuthorID         int64     `json:"author_id"`
	AuthorName       string    `json:"author_name"`
	Text             string    `json:"text"`
	FilePath         string    `json:"file_path,omitempty"`
	OriginalFileName string    `json:"original_file_name,omitempty"`
	FileMimeType     string    `json:"file_mime_type,omitempty"`
	Kind             string    `json:"kind"`
	CreatedAt        time.Time `json:"created_at"`
	IsOwn            bool      `json:"is_own"`
}

// Send maneja POST /send.
func (h *FeedHandler) Send(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Text       string             `json:"text"`
		Attachment *domain.Attachment `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if h.rateLimiter != nil && !h.rateLimiter.Allow(claims.UserID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many messages"})
		return
	}

	id, err := h.feedSvc.Send(c.Request.Context(), claims.UserID, req.Text, req.Attachment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty message"})
		case errors.Is(err, service.ErrMessageTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message too long"})
		default:
			h.logger.Error("send message failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

// Feed maneja GET /feed?after_id=N.
func (h *FeedHandler) Feed(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	afterID, err := strconv.ParseInt(c.DefaultQuery("after_id", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after_id"})
		return
	}

	messages, err := h.feedSvc.Fetch(c.Request.Context(), afterID, service.MaxFetchLimit)
	if err != nil {
		h.logger.Error("fetch feed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	rows := make([]feedRow, 0, len(messages))
	for _, msg := range messages {
		row := feedRow{
			ID:         msg.ID,
			AuthorID:   msg.AuthorID,
			AuthorName: html.EscapeString(msg.AuthorName),
			Text:       html.EscapeString(msg.Text),
			Kind:       string(msg.Kind),
			CreatedAt:  msg.CreatedAt,
			IsOwn:      msg.AuthorID == claims.UserID,
		}
		if row.Kind == "" {
			row.Kind = string(domain.KindUser)
		}
		if msg.Attachment != nil {
			row.FilePath = msg.Attachment.Path
			row.OriginalFileName = msg.Attachment.OriginalName
			row.FileMimeType = msg.Attachment.MimeType
		}
		rows = append(rows, row)
	}

	c.JSON(http.StatusOK, rows)
}

// Presence maneja POST /presence.
func (h *FeedHandler) Presence(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid presence request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var err error
	switch req.Status {
	case "online":
		err = h.presenceSvc.SetOnline(c.Request.Context(), claims.UserID)
	case "offline":
		err = h.presenceSvc.SetOffline(c.Request.Context(), claims.UserID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
		return
	}
	if err != nil {
		h.logger.Error("presence update failed", zap.Error(err), zap.String("status", req.Status))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
