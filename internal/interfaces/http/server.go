package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leaguedesk/leaguedesk/internal/interfaces/http/handlers"
	"github.com/leaguedesk/leaguedesk/internal/interfaces/websocket"
)

// Server is the HTTP front of the engine.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config holds listener settings.
type Config struct {
	Host string
	Port int
	Mode string // debug, production
}

// NewServer builds the router and wires all handlers.
func NewServer(
	cfg Config,
	contentHandler *handlers.ContentHandler,
	commentHandler *handlers.CommentHandler,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	setupRoutes(router, contentHandler, commentHandler, hub)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: logger,
	}
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func setupRoutes(router *gin.Engine, contentHandler *handlers.ContentHandler, commentHandler *handlers.CommentHandler, hub *websocket.Hub) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/content", contentHandler.Submit)
		v1.GET("/content", contentHandler.List)
		v1.GET("/content/:id", contentHandler.Get)
		v1.POST("/content/:id/retry", contentHandler.Retry)

		v1.POST("/comment-requests", commentHandler.Create)
		v1.GET("/comment-requests", commentHandler.ListPending)
		v1.GET("/comment-requests/:id", commentHandler.Get)
		v1.POST("/comment-requests/:id/reply", commentHandler.SubmitReply)
		v1.POST("/comment-requests/:id/decline", commentHandler.Decline)
		v1.GET("/comment-requests/:id/response", commentHandler.GetResponse)
	}

	if hub != nil {
		router.GET("/ws/status", func(c *gin.Context) {
			hub.HandleUpgrade(c.Writer, c.Request)
		})
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", statusCode),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
