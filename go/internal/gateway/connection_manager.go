package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/expiry"
	"github.com/rs/zerolog/log"
)

// ConnectionManager fans advisory clock events out to each user's open
// WebSocket connections. It implements expiry.Sink.
type ConnectionManager struct {
	userConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	broadcastCh chan BroadcastMessage
}

var _ expiry.Sink = (*ConnectionManager)(nil)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one event addressed to one user.
type BroadcastMessage struct {
	UserID uuid.UUID
	Event  *ClockEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	return &ConnectionManager{
		userConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes queued events until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket for userID.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID.String()).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.userConnections[conn.UserID] == nil {
		cm.userConnections[conn.UserID] = make(map[*Connection]bool)
	}
	cm.userConnections[conn.UserID][conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.userConnections[conn.UserID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.userConnections, conn.UserID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID.String()).
		Msg("connection unregistered")
}

// HasConnections reports whether userID has at least one open connection.
func (cm *ConnectionManager) HasConnections(userID uuid.UUID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.userConnections[userID]) > 0
}

// SendToUser queues an event for every connection of userID. Events for
// users without connections, or arriving while the queue is full, are dropped.
func (cm *ConnectionManager) SendToUser(userID uuid.UUID, event *ClockEvent) {
	if !cm.HasConnections(userID) {
		return
	}
	select {
	case cm.broadcastCh <- BroadcastMessage{UserID: userID, Event: event}:
	default:
		log.Warn().Str("user_id", userID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) SessionStatus(userID uuid.UUID, s expiry.Status) {
	cm.push(userID, EventTypeSessionStatus, s)
}

func (cm *ConnectionManager) SessionWarning(userID uuid.UUID, s expiry.Status) {
	cm.push(userID, EventTypeSessionWarning, s)
}

func (cm *ConnectionManager) SessionClosed(userID uuid.UUID, c expiry.Closed) {
	cm.push(userID, EventTypeSessionClosed, c)
}

func (cm *ConnectionManager) push(userID uuid.UUID, t EventType, payload any) {
	if !cm.HasConnections(userID) {
		return
	}
	event, err := newEvent(t, cm.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(t)).Msg("failed to build clock event")
		return
	}
	cm.SendToUser(userID, event)
}

// handleBroadcast sends while holding the read lock, since unregistering
// closes Send under the write lock.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	cm.mu.RLock()
	for conn := range cm.userConnections[message.UserID] {
		select {
		case conn.Send <- eventData:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID.String()).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats is the payload of /ws/stats.
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	ConnectedUsers   int `json:"connected_users"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{ConnectedUsers: len(cm.userConnections)}
	for _, connections := range cm.userConnections {
		stats.TotalConnections += len(connections)
	}
	return stats
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only keeps the read deadline alive; clients send nothing we act on.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
