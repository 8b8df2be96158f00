package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	apierrors "github.com/macchain/backend/internal/errors"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
)

// TokenValidator resolves a bearer token to its user
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.User, error)
}

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub             *Hub
	tokens          TokenValidator
	presenceManager *PresenceManager
	originPatterns  []string
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, tokens TokenValidator) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
	}
}

// SetPresenceManager sets the presence manager for the handler
func (h *Handler) SetPresenceManager(pm *PresenceManager) {
	h.presenceManager = pm
}

// SetOriginPatterns restricts which browser origins may upgrade.
// With none set, cross-origin upgrades are accepted.
func (h *Handler) SetOriginPatterns(patterns []string) {
	h.originPatterns = patterns
}

// HandleWebSocket handles WebSocket upgrade requests.
// The token comes from ?token=... or an Authorization: Bearer header.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err), logger.WithIP(c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.Unauthorized(err.Error()))
		return
	}

	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if len(h.originPatterns) > 0 {
		opts.OriginPatterns = h.originPatterns
	} else {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(user.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	if h.presenceManager != nil {
		h.presenceManager.OnClientConnect(client)
	}

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event:   "connected",
		Message: "connected",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	tokenString := c.Query("token")

	if header := c.GetHeader("Authorization"); header != "" {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	}

	if tokenString == "" {
		return nil, errors.New("no authentication token provided")
	}
	if h.tokens == nil {
		return nil, errors.New("authentication unavailable")
	}

	user, err := h.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return user, nil
}

// HandleOnline reports which users currently hold a connection.
// GET /ws/online
func (h *Handler) HandleOnline(c *gin.Context) {
	if h.presenceManager != nil {
		online := h.presenceManager.GetAllOnline()
		c.JSON(http.StatusOK, gin.H{
			"users":     online,
			"count":     len(online),
			"timestamp": time.Now().UTC(),
		})
		return
	}

	ids := h.hub.GetOnlineUsers()
	users := make([]UserPresence, 0, len(ids))
	for _, id := range ids {
		users = append(users, UserPresence{UserID: id, Status: StatusOnline})
	}
	c.JSON(http.StatusOK, gin.H{
		"users":     users,
		"count":     len(users),
		"timestamp": time.Now().UTC(),
	})
}

// HandleMetrics returns WebSocket metrics (for monitoring)
func (h *Handler) HandleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.GetMetrics(),
		"online_users": h.hub.GetOnlineUsers(),
		"timestamp":    time.Now().UTC(),
	})
}

// Shutdown gracefully shuts down the WebSocket handler
func (h *Handler) Shutdown(ctx context.Context) error {
	if h.presenceManager != nil {
		h.presenceManager.Stop()
	}
	return h.hub.Shutdown(ctx)
}

// Hub returns the hub for publishers
func (h *Handler) Hub() *Hub {
	return h.hub
}
