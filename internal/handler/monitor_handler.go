package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const monitorPingInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live session events (starts, violations,
// submissions, terminations) to the admin dashboard over WebSocket, fed by
// the per-test Redis PubSub channel.
type MonitorHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorTest godoc
// WS /ws/v1/admin/tests/:test_id/monitor
// Upgrades to WebSocket and forwards the test's monitor events as they
// arrive. Admin auth happens in routing middleware before the upgrade.
func (h *MonitorHandler) MonitorTest(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("test_id", testID.String()).Logger()
	wsLog.Info().Msg("Admin attached to live monitor")

	reqCtx := c.Request.Context()
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.TestMonitorChannel(testID.String()))
	defer pubsub.Close()
	ch := pubsub.Channel()

	// The read pump only detects client disconnects; inbound frames are
	// ignored.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(monitorPingInterval)
	defer pingTicker.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			wsLog.Info().Msg("Admin disconnected from live monitor")
			return

		case <-done:
			wsLog.Debug().Msg("Monitor connection closed by client")
			return

		case msg, open := <-ch:
			if !open {
				wsLog.Warn().Msg("Monitor subscription closed")
				return
			}
			// Forward raw JSON directly, no deserialization needed.
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				wsLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}

		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return
			}
		}
	}
}
