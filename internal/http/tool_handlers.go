package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memoria/internal/memory"
	"memoria/internal/tools"
)

// ToolHandler exposes the six memory tool operations as JSON endpoints.
type ToolHandler struct {
	logger  *zap.Logger
	surface *tools.Surface
}

func NewToolHandler(logger *zap.Logger, surface *tools.Surface) *ToolHandler {
	return &ToolHandler{logger: logger, surface: surface}
}

func (h *ToolHandler) fail(c *gin.Context, status int, err error) {
	h.logger.Warn("tool call failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}

// RememberFact handles POST /v1/tools/remember_fact.
func (h *ToolHandler) RememberFact(c *gin.Context) {
	var req tools.RememberFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	insight, err := h.surface.RememberFact(c.Request.Context(), req, time.Now())
	if err != nil {
		if errors.Is(err, memory.ErrValidationRejected) {
			c.JSON(http.StatusOK, gin.H{"id": nil})
			return
		}
		h.fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, insight)
}

// SearchMemories handles POST /v1/tools/search_memories.
func (h *ToolHandler) SearchMemories(c *gin.Context) {
	var req tools.SearchMemoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	matches, err := h.surface.SearchMemories(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// SearchLibrary handles POST /v1/tools/search_library.
func (h *ToolHandler) SearchLibrary(c *gin.Context) {
	var req tools.SearchLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	docs, err := h.surface.SearchLibrary(req)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// ReflectOn handles POST /v1/tools/reflect_on.
func (h *ToolHandler) ReflectOn(c *gin.Context) {
	var req tools.ReflectOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	reflection, err := h.surface.ReflectOn(c.Request.Context(), req, time.Now())
	if err != nil {
		h.fail(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, reflection)
}

// CaptureDocument handles POST /v1/tools/capture_document.
func (h *ToolHandler) CaptureDocument(c *gin.Context) {
	var req tools.CaptureDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	doc, err := h.surface.CaptureDocument(c.Request.Context(), req, time.Now())
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// ReconstructContext handles POST /v1/tools/reconstruct_context.
func (h *ToolHandler) ReconstructContext(c *gin.Context) {
	var req tools.ReconstructContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	resp, err := h.surface.ReconstructContext(c.Request.Context(), req)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
