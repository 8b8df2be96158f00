package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PresenceStatus represents the current status of a user
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// UserPresence tracks a single user's presence state
type UserPresence struct {
	UserID       string         `json:"user_id"`
	Username     string         `json:"username"`
	Status       PresenceStatus `json:"status"`
	LastActivity time.Time      `json:"last_activity"`
	ConnectedAt  time.Time      `json:"connected_at"`
}

// PresenceManager tracks who is connected and announces changes to
// clients subscribed to the presence topic
type PresenceManager struct {
	hub *Hub
	db  *gorm.DB

	presence map[string]*UserPresence
	mu       sync.RWMutex

	// How long without activity before a user without connections is offline
	timeoutDuration time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PresenceConfig holds configuration for the presence manager
type PresenceConfig struct {
	TimeoutDuration time.Duration // Default: 5 minutes
}

// DefaultPresenceConfig returns sensible defaults
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{TimeoutDuration: 5 * time.Minute}
}

// NewPresenceManager creates a presence manager. db may be nil; when set,
// users' last_active_at is updated on disconnect.
func NewPresenceManager(hub *Hub, db *gorm.DB, config PresenceConfig) *PresenceManager {
	ctx, cancel := context.WithCancel(context.Background())
	if config.TimeoutDuration == 0 {
		config.TimeoutDuration = 5 * time.Minute
	}

	pm := &PresenceManager{
		hub:             hub,
		db:              db,
		presence:        make(map[string]*UserPresence),
		timeoutDuration: config.TimeoutDuration,
		ctx:             ctx,
		cancel:          cancel,
	}
	hub.SetPresenceManager(pm)
	return pm
}

// Start begins the presence manager's timeout checker
func (pm *PresenceManager) Start() {
	pm.wg.Add(1)
	go func() {
		defer pm.wg.Done()
		pm.runTimeoutChecker()
	}()
}

// Stop shuts the checker down and marks everyone offline
func (pm *PresenceManager) Stop() {
	pm.cancel()
	pm.wg.Wait()

	pm.mu.Lock()
	for userID := range pm.presence {
		pm.setOfflineInternal(userID)
	}
	pm.mu.Unlock()
}

// OnClientConnect is called when a client connects. The hub marks users
// offline itself once their last connection unregisters.
func (pm *PresenceManager) OnClientConnect(client *Client) {
	pm.UpdatePresence(client.UserID, client.Username)
}

// UpdatePresence marks a user online and announces it when it is new
func (pm *PresenceManager) UpdatePresence(userID, username string) {
	pm.mu.Lock()
	existing := pm.presence[userID]
	isNewOnline := existing == nil || existing.Status == StatusOffline
	now := time.Now()

	if existing == nil {
		pm.presence[userID] = &UserPresence{
			UserID:       userID,
			Username:     username,
			Status:       StatusOnline,
			LastActivity: now,
			ConnectedAt:  now,
		}
	} else {
		existing.Status = StatusOnline
		existing.LastActivity = now
		if isNewOnline {
			existing.ConnectedAt = now
		}
		if existing.Username == "" {
			existing.Username = username
		}
	}
	pm.mu.Unlock()

	if isNewOnline {
		pm.announce(MessageTypeUserOnline, userID, StatusOnline, now)
	}
}

// SetOffline marks a user as offline
func (pm *PresenceManager) SetOffline(userID string) {
	pm.mu.Lock()
	pm.setOfflineInternal(userID)
	pm.mu.Unlock()
}

// setOfflineInternal marks a user as offline (must hold lock)
func (pm *PresenceManager) setOfflineInternal(userID string) {
	presence, ok := pm.presence[userID]
	if !ok || presence.Status == StatusOffline {
		return
	}
	now := time.Now()
	presence.Status = StatusOffline
	presence.LastActivity = now

	go pm.recordLastActive(userID, now)
	go pm.announce(MessageTypeUserOffline, userID, StatusOffline, now)
}

func (pm *PresenceManager) announce(msgType, userID string, status PresenceStatus, at time.Time) {
	pm.hub.BroadcastTopic(TopicPresence, NewMessage(msgType, PresencePayload{
		UserID:    userID,
		Status:    string(status),
		Timestamp: at.UnixMilli(),
	}))
}

// GetPresence returns a copy of a user's current presence
func (pm *PresenceManager) GetPresence(userID string) *UserPresence {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if presence, ok := pm.presence[userID]; ok {
		p := *presence
		return &p
	}
	return nil
}

// GetAllOnline returns all currently online users
func (pm *PresenceManager) GetAllOnline() []UserPresence {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make([]UserPresence, 0, len(pm.presence))
	for _, presence := range pm.presence {
		if presence.Status != StatusOffline {
			result = append(result, *presence)
		}
	}
	return result
}

// Heartbeat updates the last activity time for a user
func (pm *PresenceManager) Heartbeat(userID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if presence, ok := pm.presence[userID]; ok {
		presence.LastActivity = time.Now()
	}
}

func (pm *PresenceManager) runTimeoutChecker() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pm.ctx.Done():
			return
		case <-ticker.C:
			pm.checkTimeouts(time.Now())
		}
	}
}

// checkTimeouts marks idle users offline once they have no connections
func (pm *PresenceManager) checkTimeouts(now time.Time) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	cutoff := now.Add(-pm.timeoutDuration)
	for userID, presence := range pm.presence {
		if presence.Status == StatusOffline || !presence.LastActivity.Before(cutoff) {
			continue
		}
		if pm.hub.IsUserOnline(userID) {
			presence.LastActivity = now
			continue
		}
		logger.Log.Debug("Presence timeout", logger.WithUserID(userID), zap.Time("last_activity", presence.LastActivity))
		pm.setOfflineInternal(userID)
	}
}

func (pm *PresenceManager) recordLastActive(userID string, at time.Time) {
	if pm.db == nil {
		return
	}
	if err := pm.db.Model(&models.User{}).Where("id = ?", userID).UpdateColumn("last_active_at", at).Error; err != nil {
		logger.Log.Warn("Failed to record last activity", logger.WithUserID(userID), zap.Error(err))
	}
}
