package handlers

import (
	"net/http"
	"sync"
	"time"

	"haito-mikke/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	DefaultMaxConnections = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// LastResultProvider exposes the most recent sync of this process
type LastResultProvider interface {
	LastResult() *models.SyncResult
}

// SyncEvent is the message pushed to WebSocket clients
type SyncEvent struct {
	Type      string             `json:"type"`
	Data      *models.SyncResult `json:"data"`
	Timestamp int64              `json:"timestamp"`
}

// WebSocketHandler pushes sync completion events to connected browsers
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	last           LastResultProvider
	maxConnections int
	log            *zap.Logger

	clients      map[*websocket.Conn]bool
	clientsMutex sync.RWMutex
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; an empty list allows any origin
func NewWebSocketHandler(last LastResultProvider, allowedOrigins []string, maxConnections int, log *zap.Logger) *WebSocketHandler {
	if maxConnections <= 0 {
		maxConnections = DefaultMaxConnections
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin] || origin == "http://"+r.Host || origin == "https://"+r.Host
			},
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		last:           last,
		maxConnections: maxConnections,
		log:            log,
		clients:        make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket handles GET /ws
func (wsh *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	current := wsh.GetConnectedClients()
	if current >= wsh.maxConnections {
		wsh.log.Warn("websocket connection limit reached",
			zap.Int("current", current), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Too many connections",
			"limit":   wsh.maxConnections,
			"current": current,
		})
		return
	}

	conn, err := wsh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wsh.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// greet before registering so broadcasts never interleave with this write
	var last *models.SyncResult
	if wsh.last != nil {
		last = wsh.last.LastResult()
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(SyncEvent{Type: "connected", Data: last, Timestamp: time.Now().Unix()}); err != nil {
		return
	}

	wsh.clientsMutex.Lock()
	wsh.clients[conn] = true
	wsh.clientsMutex.Unlock()
	wsh.log.Debug("websocket client connected", zap.Int("clients", wsh.GetConnectedClients()))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}

	wsh.clientsMutex.Lock()
	delete(wsh.clients, conn)
	wsh.clientsMutex.Unlock()
	wsh.log.Debug("websocket client disconnected", zap.Int("clients", wsh.GetConnectedClients()))
}

// BroadcastSyncResult sends a sync_completed event to every client.
// Its signature matches SyncService.OnComplete.
func (wsh *WebSocketHandler) BroadcastSyncResult(result models.SyncResult) {
	wsh.broadcastToClients(SyncEvent{Type: "sync_completed", Data: &result, Timestamp: time.Now().Unix()})
}

func (wsh *WebSocketHandler) broadcastToClients(message interface{}) {
	wsh.clientsMutex.Lock()
	defer wsh.clientsMutex.Unlock()

	var clientsToRemove []*websocket.Conn
	for client := range wsh.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(message); err != nil {
			wsh.log.Debug("websocket broadcast failed", zap.Error(err))
			client.Close()
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	for _, client := range clientsToRemove {
		delete(wsh.clients, client)
	}
}

// GetConnectedClients returns the number of connected WebSocket clients
func (wsh *WebSocketHandler) GetConnectedClients() int {
	wsh.clientsMutex.RLock()
	defer wsh.clientsMutex.RUnlock()
	return len(wsh.clients)
}
