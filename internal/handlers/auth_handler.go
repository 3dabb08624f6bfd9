package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/auth"
	"github.com/imran-vz/cocoacomaastore/pkg/errors"
)

// AuthHandler issues the JWT tokens the POS terminals attach to every
// request.
type AuthHandler struct {
	logger     *zap.Logger
	jwtManager *auth.JWTManager
}

func NewAuthHandler(jwtManager *auth.JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{logger: logger, jwtManager: jwtManager}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid login request", zap.Error(err))
		respondError(c, errors.NewInvalidRequest("invalid request", "username or password"))
		return
	}

	if !h.validateCredentials(req.Username, req.Password) {
		h.logger.Warn("Invalid credentials", zap.String("username", req.Username))
		respondError(c, errors.NewStandardError("Unauthorized", "invalid credentials", "username or password incorrect"))
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		respondError(c, errors.NewInternalError("failed to generate token", err))
		return
	}

	expiresAt := time.Now().Add(12 * time.Hour)
	h.logger.Info("User logged in", zap.String("username", req.Username))
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		Type:      "Bearer",
		ExpiresIn: int((12 * time.Hour).Seconds()),
		ExpiresAt: expiresAt,
	})
}

// validateCredentials validates staff credentials.
// TODO: back this with the staff table once the management screens land.
func (h *AuthHandler) validateCredentials(username, password string) bool {
	validUsers := map[string]string{
		"admin":   "admin123",
		"cashier": "cashier123",
	}
	expected, exists := validUsers[username]
	return exists && expected == password
}
