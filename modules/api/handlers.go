package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/meetus-signal/domain/room"
	"github.com/example/meetus-signal/modules/relay"
	"github.com/example/meetus-signal/modules/transport"
)

// EventConnected is the first event every WebSocket client receives.
const EventConnected = "connected"

const roomListTimeout = 5 * time.Second

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket, websocket.Config{
		Origins: m.cfg.AllowedOrigins,
	}))

	// REST API v1
	api := app.Group("/api/v1")

	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:id", m.roomInfo)
	api.Get("/rooms/:id/members", m.roomMembers)
	api.Get("/stats", m.stats)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{
		"module": "api",
	}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	summaries, err := m.sharedRoomList(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}

	return c.JSON(RoomListResponse{Rooms: summaries})
}

// sharedRoomList coalesces concurrent room list calls. The shared call runs
// on a detached context; each caller stops waiting when its own ctx ends.
func (m *APIModule) sharedRoomList(ctx context.Context) ([]room.Summary, error) {
	ch := m.listGroup.DoChan("rooms", func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.Background(), roomListTimeout)
		defer cancel()
		return m.roomsPort.ListRooms(callCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]room.Summary), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// roomInfo handles GET /api/v1/rooms/:id.
func (m *APIModule) roomInfo(c *fiber.Ctx) error {
	roomID := strings.TrimSpace(c.Params("id"))
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Room ID is required",
		})
	}

	summary, exists, err := m.roomsPort.RoomInfo(c.UserContext(), roomID)
	if err != nil {
		m.logger.Error("Failed to get room info", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "info_failed",
			Message: "Failed to get room info",
		})
	}

	return c.JSON(RoomInfoResponse{Summary: summary, Exists: exists})
}

// roomMembers handles GET /api/v1/rooms/:id/members.
func (m *APIModule) roomMembers(c *fiber.Ctx) error {
	roomID := strings.TrimSpace(c.Params("id"))
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Room ID is required",
		})
	}

	details, err := m.roomsPort.GetRoom(c.UserContext(), roomID)
	if errors.Is(err, room.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}
	if err != nil {
		m.logger.Error("Failed to get room", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "get_failed",
			Message: "Failed to get room",
		})
	}
	return c.JSON(details)
}

// stats handles GET /api/v1/stats.
func (m *APIModule) stats(c *fiber.Ctx) error {
	roomStats, err := m.roomsPort.Stats(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to get room stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "stats_failed",
			Message: "Failed to get stats",
		})
	}

	resp := StatsResponse{Rooms: roomStats}
	if m.activity != nil {
		snap := m.activity.Snapshot()
		resp.Activity = &snap
	}
	if m.hub != nil {
		resp.ConnectedClients = m.hub.ClientCount()
	}
	return c.JSON(resp)
}

// handleWebSocket handles WebSocket connections at /ws.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()

	client, err := m.hub.Register(connID, c)
	if err != nil {
		m.logger.Warn("Rejecting WebSocket client", "connID", connID, "error", err)
		return
	}
	defer func() {
		m.relay.Disconnect(connID)
		m.hub.Unregister(client)
		m.logger.Info("WebSocket client disconnected", "connID", connID)
	}()

	m.logger.Info("WebSocket client connected", "connID", connID, "ip", c.IP())

	c.SetReadLimit(m.cfg.MaxMessageSize)
	_ = c.SetReadDeadline(time.Now().Add(m.cfg.PingTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(m.cfg.PingTimeout))
	})

	m.hub.Send(connID, EventConnected, ConnectedMessage{ID: connID})

	limiter := rate.NewLimiter(rate.Limit(m.cfg.RateLimitEvents), m.cfg.RateLimitBurst)

	// Message loop
	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("WebSocket read error", "connID", connID, "error", err)
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(m.cfg.PingTimeout))

		if !limiter.Allow() {
			m.hub.Send(connID, relay.EventError, relay.ErrorMessage{Message: "Rate limit exceeded"})
			continue
		}

		env, err := transport.DecodeEnvelope(frame)
		if err != nil {
			m.hub.Send(connID, relay.EventError, relay.ErrorMessage{Message: "Invalid message format"})
			continue
		}

		m.relay.Dispatch(connID, env.Event, env.Data)
	}
}
