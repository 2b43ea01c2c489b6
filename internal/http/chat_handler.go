package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memoria/internal/session"
)

// ChatHandler drives one long-lived session.Coordinator for the life of
// the process: a session owns exactly one memory_base_path, so there is
// one coordinator per server instance, not one per request.
type ChatHandler struct {
	logger *zap.Logger
	coord  *session.Coordinator
}

func NewChatHandler(logger *zap.Logger, coord *session.Coordinator) *ChatHandler {
	return &ChatHandler{logger: logger, coord: coord}
}

type chatRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Location string `json:"location"`
	Input    string `json:"input" binding:"required"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// Chat handles POST /v1/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	answer, err := h.coord.Chat(c.Request.Context(), req.UserID, req.Location, req.Input, time.Now())
	if err != nil {
		h.logger.Warn("chat failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chatResponse{Answer: answer})
}

// Trace handles GET /v1/trace: the retrieval trace behind the most
// recent reconstruction, for a human or a ReAct client to inspect.
func (h *ChatHandler) Trace(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.LastTrace())
}
