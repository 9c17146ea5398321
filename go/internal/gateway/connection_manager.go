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
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// CommandHandler applies a client command to the participant at key.
type CommandHandler func(ctx context.Context, key string, cmd Command) error

// ConnectionManager manages the WebSocket connections of local participants.
type ConnectionManager struct {
	// Connection pools organized by participant key
	connections map[string]map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handle   CommandHandler

	ctx         context.Context
	broadcastCh chan BroadcastMessage
}

// Connection is one WebSocket client attached to a participant.
type Connection struct {
	ID      string
	Key     string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	limiter     *rate.Limiter
	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CommandRate     rate.Limit // Sustained commands per second per connection
	CommandBurst    int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a payload for every connection of one participant.
type BroadcastMessage struct {
	Key     string
	Payload []byte
}

// ServerMessage is what the gateway sends to clients.
type ServerMessage struct {
	Type  string `json:"type"` // "state" or "error"
	State any    `json:"state,omitempty"`
	Error string `json:"error,omitempty"`
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CommandRate:     120, // pointer moves at display refresh rate
		CommandBurst:    30,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, handle CommandHandler) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		handle:      handle,
		ctx:         context.Background(),
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcasts until ctx is done.
func (cm *ConnectionManager) Start(ctx context.Context) {
	cm.mu.Lock()
	cm.ctx = ctx
	cm.mu.Unlock()
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection and attaches it to the
// participant at key. initial, if not nil, is the first message sent.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, key string, initial []byte) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Key:         key,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		limiter:     rate.NewLimiter(cm.config.CommandRate, cm.config.CommandBurst),
		ConnectedAt: time.Now(),
	}
	if initial != nil {
		connection.Send <- initial
	}

	cm.registerConnection(connection)
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("participant", key).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.connections[conn.Key] == nil {
		cm.connections[conn.Key] = make(map[*Connection]bool)
	}
	cm.connections[conn.Key][conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.connections[conn.Key]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.connections, conn.Key)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("participant", conn.Key).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.connections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		cm.unregisterConnection(conn)
	}
}

// Broadcast queues a message for every connection of the participant at key.
func (cm *ConnectionManager) Broadcast(key string, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("participant", key).Msg("failed to marshal message for broadcast")
		return
	}
	select {
	case cm.broadcastCh <- BroadcastMessage{Key: key, Payload: payload}:
	default:
		log.Warn().Str("participant", key).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	// sends happen under the read lock so unregister cannot close Send mid-send
	var slow []*Connection
	cm.mu.RLock()
	for conn := range cm.connections[message.Key] {
		select {
		case conn.Send <- message.Payload:
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("participant", conn.Key).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionCount returns the number of open connections.
func (cm *ConnectionManager) ConnectionCount() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	total := 0
	for _, connections := range cm.connections {
		total += len(connections)
	}
	return total
}

func (cm *ConnectionManager) context() context.Context {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.ctx
}

// writePump handles sending messages to the WebSocket connection
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
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles commands read from the WebSocket connection
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
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	if !c.limiter.Allow() {
		c.reply(ServerMessage{Type: "error", Error: ErrRateLimited.Error()})
		return
	}

	cmd, err := ParseCommand(message)
	if err == nil {
		err = c.Manager.handle(c.Manager.context(), c.Key, cmd)
	}
	if err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Str("participant", c.Key).
			Msg("command rejected")
		c.reply(ServerMessage{Type: "error", Error: err.Error()})
	}
}

// reply sends msg to this connection only.
func (c *Connection) reply(msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Manager.mu.RLock()
	defer c.Manager.mu.RUnlock()
	if !c.Manager.connections[c.Key][c] {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}
