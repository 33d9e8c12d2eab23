package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voxbridge/codec"
	"voxbridge/config"
	"voxbridge/metrics"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Manager tracks all live bridges, mirrors their lifecycle into Redis when
// one is configured, and enforces the session cap.
type Manager struct {
	bridges  map[string]*Bridge
	reserved int // slots held by in-flight dials, counted against the cap
	mu       sync.RWMutex
	redis    *redis.Client
	config   *config.Config
	metrics  *metrics.Metrics

	// Codec construction, overridable in tests.
	newEncoder func() (codec.Encoder, error)
	newDecoder codec.DecoderFactory
}

// NewManager creates a bridge manager. Redis is optional: with no RedisURL
// configured, or when the ping fails, the manager runs on memory alone.
func NewManager(cfg *config.Config, m *metrics.Metrics) (*Manager, error) {
	var redisClient *redis.Client

	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Redis unavailable, continue without it
			redisClient = nil
		}
	}

	return &Manager{
		bridges: make(map[string]*Bridge),
		redis:   redisClient,
		config:  cfg,
		metrics: m,
		newEncoder: func() (codec.Encoder, error) {
			return codec.NewOpusEncoder()
		},
		newDecoder: func() (codec.Decoder, error) {
			return codec.NewOpusDecoder()
		},
	}, nil
}

// CreateBridge dials the upstream and registers a bridge for clientConn.
// The manager lock is never held across the dial: the slot is reserved
// first, so a slow upstream handshake cannot stall other bridges.
func (sm *Manager) CreateBridge(ctx context.Context, clientConn *websocket.Conn) (*Bridge, error) {
	sm.mu.Lock()
	if len(sm.bridges)+sm.reserved >= sm.config.MaxSessions {
		sm.mu.Unlock()
		return nil, fmt.Errorf("maximum sessions reached")
	}
	sm.reserved++
	sm.mu.Unlock()

	bridgeID := ulid.Make().String()

	encoder, err := sm.newEncoder()
	if err != nil {
		sm.releaseSlot()
		return nil, fmt.Errorf("create encoder: %w", err)
	}

	bridge, err := NewBridge(ctx, bridgeID, clientConn, sm.config, sm.metrics, encoder, sm.newDecoder)
	if err != nil {
		sm.releaseSlot()
		return nil, err
	}

	sm.mu.Lock()
	sm.reserved--
	sm.bridges[bridgeID] = bridge
	sm.mu.Unlock()

	sm.mirrorBridge(ctx, bridgeID, bridge)
	sm.metrics.SessionsCreated.Inc()
	sm.metrics.SessionsActive.Inc()
	return bridge, nil
}

func (sm *Manager) releaseSlot() {
	sm.mu.Lock()
	sm.reserved--
	sm.mu.Unlock()
}

// mirrorBridge records a registered bridge in Redis
func (sm *Manager) mirrorBridge(ctx context.Context, bridgeID string, bridge *Bridge) {
	if sm.redis != nil {
		sm.redis.HSet(ctx, "bridge:"+bridgeID, map[string]interface{}{
			"created_at":    bridge.CreatedAt.Format(time.RFC3339),
			"last_activity": bridge.LastActivity().Format(time.RFC3339),
			"status":        "active",
		})
		sm.redis.SAdd(ctx, "active_bridges", bridgeID)
		sm.redis.Expire(ctx, "bridge:"+bridgeID, sm.config.SessionTimeout)
	}
}

// GetBridge retrieves a bridge by ID
func (sm *Manager) GetBridge(bridgeID string) (*Bridge, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	bridge, exists := sm.bridges[bridgeID]
	return bridge, exists
}

// RemoveBridge cleans up and removes a bridge
func (sm *Manager) RemoveBridge(ctx context.Context, bridgeID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	bridge, exists := sm.bridges[bridgeID]
	if !exists {
		return nil
	}

	bridge.Close()
	delete(sm.bridges, bridgeID)
	sm.metrics.SessionsActive.Dec()

	if sm.redis != nil {
		sm.redis.Del(ctx, "bridge:"+bridgeID)
		sm.redis.SRem(ctx, "active_bridges", bridgeID)
	}

	return nil
}

// GetActiveBridgeCount returns current bridge count
func (sm *Manager) GetActiveBridgeCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.bridges)
}

// CleanupInactiveBridges removes bridges that are closed or have gone idle
// past the session timeout.
func (sm *Manager) CleanupInactiveBridges(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, bridge := range sm.bridges {
		if !bridge.IsClosed() && now.Sub(bridge.LastActivity()) <= sm.config.SessionTimeout {
			continue
		}

		bridge.Close()
		delete(sm.bridges, id)
		sm.metrics.SessionsActive.Dec()

		if sm.redis != nil {
			sm.redis.Del(ctx, "bridge:"+id)
			sm.redis.SRem(ctx, "active_bridges", id)
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive bridges
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveBridges(ctx)
		}
	}
}

// Shutdown closes all bridges
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, bridge := range sm.bridges {
		bridge.Close()
		delete(sm.bridges, id)
		sm.metrics.SessionsActive.Dec()
	}

	if sm.redis != nil {
		sm.redis.Close()
	}
}
