package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/singleflight"

	"github.com/example/meetus-signal/modules/activity"
	"github.com/example/meetus-signal/modules/rooms"
	"github.com/example/meetus-signal/modules/transport"
)

// Config holds the HTTP and WebSocket settings.
type Config struct {
	Addr            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	PingTimeout     time.Duration
	RateLimitEvents float64
	RateLimitBurst  int
}

// Dispatcher handles inbound client events.
type Dispatcher interface {
	Dispatch(connID, event string, data json.RawMessage)
	Disconnect(connID string)
}

// ConnectionHub tracks live WebSocket connections.
type ConnectionHub interface {
	Register(connID string, conn transport.Conn) (*transport.Client, error)
	Unregister(client *transport.Client)
	Send(connID, event string, payload any) bool
	ClientCount() int
}

// ActivitySource exposes activity counters.
type ActivitySource interface {
	Snapshot() activity.Snapshot
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app       *fiber.App
	cfg       Config
	roomsPort rooms.RoomsPort
	relay     Dispatcher
	hub       ConnectionHub
	activity  ActivitySource
	listGroup singleflight.Group
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"rooms"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "rooms":
		m.roomsPort = rooms.NewRoomsAdapter(container)
	}
}

// SetRelay sets the event dispatcher (called from main.go).
func (m *APIModule) SetRelay(d Dispatcher) {
	m.relay = d
}

// SetHub sets the connection hub (called from main.go).
func (m *APIModule) SetHub(hub ConnectionHub) {
	m.hub = hub
}

// SetActivity sets the activity counters source (called from main.go).
func (m *APIModule) SetActivity(a ActivitySource) {
	m.activity = a
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.roomsPort == nil {
		return errors.New("rooms adapter dependency not set")
	}
	if m.hub == nil {
		return errors.New("connection hub dependency not set")
	}
	if m.relay == nil {
		return errors.New("relay dependency not set")
	}

	m.app = m.buildApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr, "origins", m.cfg.AllowedOrigins)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{
		"addr": m.cfg.Addr,
	}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// buildApp creates the Fiber app with middleware and routes.
func (m *APIModule) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "meetus-signal",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderUpgrade) == "websocket"
		},
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(m.cfg.AllowedOrigins, ","),
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.setupRoutes(app)
	return app
}

// errorHandler handles Fiber errors.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
