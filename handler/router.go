package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Cors      *CorsHandler
	Extract   *ExtractHandler
	WebSocket *WebSocketHandler
	// Document is optional; nil when uploads are not kept.
	Document *DocumentHandler
}

// NewRouter wires the HTTP and websocket routes.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Apply global middleware
	router.Use(h.Cors.CorsMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/ws", h.WebSocket.HandleChat)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/extract", h.Extract.HandleExtract)
		if h.Document != nil {
			apiV1.GET("/documents", h.Document.ServeDocument)
		}
	}
	return router
}
