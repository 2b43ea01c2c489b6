package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memoria/internal/apiauth"
)

// AuthHandler exchanges the bootstrap API key for a short-lived bearer
// JWT.
type AuthHandler struct {
	logger *zap.Logger
	keys   *apiauth.KeyStore
	jwt    *apiauth.JWTService
}

func NewAuthHandler(logger *zap.Logger, keys *apiauth.KeyStore, jwt *apiauth.JWTService) *AuthHandler {
	return &AuthHandler{logger: logger, keys: keys, jwt: jwt}
}

type tokenRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// IssueToken handles POST /v1/auth/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.keys.Verify(req.APIKey); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	token, expires, err := h.jwt.Issue("tool-runner")
	if err != nil {
		h.logger.Error("issue token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires.UTC().Format("2006-01-02T15:04:05Z07:00")})
}
