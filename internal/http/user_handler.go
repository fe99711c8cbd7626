package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"group-chat/internal/service"
)

// UserHandler mantiene dependencias para el endpoint de identidad.
type UserHandler struct {
	logger  *zap.Logger
	userSvc *service.UserService
	jwtSvc  *service.JWTService
}

func NewUserHandler(logger *zap.Logger, userSvc *service.UserService, jwtSvc *service.JWTService) *UserHandler {
	return &UserHandler{logger: logger, userSvc: userSvc, jwtSvc: jwtSvc}
}

// Login maneja POST /login: resuelve un display name a su usuario y emite
// el token que el resto de los endpoints exige.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.userSvc.Login(c.Request.Context(), req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrDisplayNameInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "display name must be 3-50 characters"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}

	token, err := h.jwtSvc.Generate(user)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}
