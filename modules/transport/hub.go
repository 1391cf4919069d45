package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

// Defaults for HubConfig.
const (
	DefaultSendBuffer   = 256
	DefaultPingInterval = 25 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

// ErrHubClosed is returned by Register once the hub has shut down.
var ErrHubClosed = errors.New("hub closed")

// Conn is the write side of a WebSocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Envelope is the wire frame used in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// HubConfig tunes per-client buffering and keepalive.
type HubConfig struct {
	SendBuffer   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

func (c HubConfig) withDefaults() HubConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = DefaultSendBuffer
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// Client is a registered connection with its own outbound queue.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	done chan struct{}
	stop sync.Once
}

func (c *Client) close() {
	c.stop.Do(func() {
		close(c.send)
	})
}

// Hub tracks live connections and delivers events to them.
type Hub struct {
	cfg     HubConfig
	logger  types.Logger
	clients map[string]*Client // connID -> Client
	closed  bool
	done    chan struct{}
	mu      sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(cfg HubConfig, logger types.Logger) *Hub {
	return &Hub{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		clients: make(map[string]*Client),
		done:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.logger.Info("Hub shutting down", "clients", h.ClientCount())
	h.closeAllClients()
	close(h.done)
}

// Wait blocks until Run has returned.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, client := range h.clients {
		client.close()
		_ = client.conn.Close()
		delete(h.clients, id)
	}
}

// Register adds a connection and starts its write pump.
func (h *Hub) Register(connID string, conn Conn) (*Client, error) {
	client := &Client{
		ID:   connID,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if old, ok := h.clients[connID]; ok {
		old.close()
	}
	h.clients[connID] = client
	h.mu.Unlock()

	go h.writePump(client)
	h.logger.Debug("Client registered", "connID", connID)
	return client, nil
}

// Unregister removes the client and waits for its write pump to exit. After
// it returns nothing touches the connection.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[client.ID]; ok && cur == client {
		delete(h.clients, client.ID)
	}
	client.close()
	h.mu.Unlock()

	<-client.done
	h.logger.Debug("Client unregistered", "connID", client.ID)
}

// Send queues event for connID. It never blocks: it returns false when the
// connection is unknown or its queue is full, and the event is dropped.
func (h *Hub) Send(connID, event string, payload any) bool {
	frame, err := encodeFrame(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode event", "event", event, "error", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		h.logger.Warn("Send queue full, dropping event", "connID", connID, "event", event)
		return false
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	defer close(client.done)

	for {
		select {
		case frame, ok := <-client.send:
			if !ok {
				return
			}
			if err := h.write(client, websocket.TextMessage, frame); err != nil {
				h.logger.Debug("Write failed", "connID", client.ID, "error", err)
				_ = client.conn.Close()
				return
			}
		case <-ticker.C:
			if err := h.write(client, websocket.PingMessage, nil); err != nil {
				h.logger.Debug("Ping failed", "connID", client.ID, "error", err)
				_ = client.conn.Close()
				return
			}
		}
	}
}

func (h *Hub) write(client *Client, messageType int, data []byte) error {
	if err := client.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout)); err != nil {
		return err
	}
	return client.conn.WriteMessage(messageType, data)
}

func encodeFrame(event string, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, errors.New("missing event name")
	}
	return env, nil
}
