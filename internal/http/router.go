package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"memoria/internal/apiauth"
)

// NewRouter wires the auth, tool, and chat handlers behind a gin
// engine. Every route but /v1/auth/token requires a bearer JWT.
func NewRouter(logger *zap.Logger, jwtSvc *apiauth.JWTService, authH *AuthHandler, toolH *ToolHandler, chatH *ChatHandler) *gin.Engine {
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	v1 := r.Group("/v1")
	v1.POST("/auth/token", authH.IssueToken)

	secured := v1.Group("")
	secured.Use(AuthMiddleware(jwtSvc))

	toolsGroup := secured.Group("/tools")
	toolsGroup.POST("/remember_fact", toolH.RememberFact)
	toolsGroup.POST("/search_memories", toolH.SearchMemories)
	toolsGroup.POST("/search_library", toolH.SearchLibrary)
	toolsGroup.POST("/reflect_on", toolH.ReflectOn)
	toolsGroup.POST("/capture_document", toolH.CaptureDocument)
	toolsGroup.POST("/reconstruct_context", toolH.ReconstructContext)

	secured.POST("/chat", chatH.Chat)
	secured.GET("/trace", chatH.Trace)

	return r
}
