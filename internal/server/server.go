// Package server exposes the session API over HTTP and streams guided
// sub-flow text over websockets. It is a thin driver: all decisions live
// in the conversation manager and the packages below it.
package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/borjamrd/hormiwita/internal/conversation"
)

// Server wires the HTTP router and the websocket hub.
type Server struct {
	manager *conversation.Manager
	ws      *melody.Melody
	logger  *slog.Logger
}

// New creates the API server.
func New(manager *conversation.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	m := melody.New()
	m.Config.MaxMessageSize = 64 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	s := &Server{manager: manager, ws: m, logger: logger}

	m.HandleMessage(s.handleGuidedMessage)
	m.HandleDisconnect(func(sess *melody.Session) {
		if acc, ok := accumulatorOf(sess); ok {
			acc.Abandon()
		}
		sessionID, _ := sess.Get(wsSessionKey)
		logger.Debug("guided flow client disconnected", "session_id", sessionID)
	})
	m.HandleError(func(_ *melody.Session, err error) {
		logger.Warn("websocket error", "error", err)
	})

	return s
}

// Router builds the gin engine with CORS and all session routes.
func (s *Server) Router(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api/v1")
	{
		api.POST("/sessions", s.createSession)
		api.GET("/sessions/:id", s.getSession)
		api.DELETE("/sessions/:id", s.deleteSession)
		api.POST("/sessions/:id/reset", s.resetSession)
		api.POST("/sessions/:id/messages", s.postMessage)
		api.POST("/sessions/:id/objectives", s.postObjectives)
		api.POST("/sessions/:id/statement", s.postStatement)
		api.POST("/sessions/:id/statement/confirm", s.confirmStatement)
		api.POST("/sessions/:id/summary/accept", s.acceptSummary)
		api.GET("/sessions/:id/forecast", s.getForecast)
		api.POST("/sessions/:id/roadmap", s.generateRoadmap)
		api.POST("/sessions/:id/roadmap/next", s.advanceRoadmap)
		api.POST("/sessions/:id/roadmap/steps/complete", s.completeRoadmapStep)
	}

	router.GET("/ws/sessions/:id/guided", s.guidedSocket)

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Websocket session keys.
const (
	wsSessionKey     = "session_id"
	wsAccumulatorKey = "accumulator"
)

// guidedFrame is one websocket frame of the guided-flow stream.
type guidedFrame struct {
	Type    string `json:"type"` // chunk, done, error
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) guidedSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if err := s.ws.HandleRequestWithKeys(c.Writer, c.Request, map[string]any{
		wsSessionKey: sessionID,
	}); err != nil {
		s.logger.Warn("failed to upgrade websocket", "session_id", sessionID, "error", err)
	}
}

// handleGuidedMessage treats each incoming websocket text message as one
// guided-flow user turn and streams the oracle's answer back as chunk
// frames, ending with a done frame carrying the full text.
func (s *Server) handleGuidedMessage(sess *melody.Session, msg []byte) {
	sessionIDValue, ok := sess.Get(wsSessionKey)
	if !ok {
		return
	}
	sessionID, _ := sessionIDValue.(string)

	acc := conversation.NewAccumulator()
	sess.Set(wsAccumulatorKey, acc)

	final, err := s.manager.StreamGuided(sess.Request.Context(), sessionID, string(msg), acc, func(chunk string) {
		s.writeFrame(sess, guidedFrame{Type: "chunk", Content: chunk})
	})
	if err != nil {
		s.writeFrame(sess, guidedFrame{Type: "error", Message: userFacing(err)})
		return
	}
	s.writeFrame(sess, guidedFrame{Type: "done", Content: final})
}

func (s *Server) writeFrame(sess *melody.Session, frame guidedFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := sess.Write(data); err != nil {
		s.logger.Debug("failed to write websocket frame", "error", err)
	}
}

func accumulatorOf(sess *melody.Session) (*conversation.Accumulator, bool) {
	value, ok := sess.Get(wsAccumulatorKey)
	if !ok {
		return nil, false
	}
	acc, ok := value.(*conversation.Accumulator)
	return acc, ok
}
