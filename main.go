package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/spf13/cobra"

	"github.com/example/meetus-signal/config"
	"github.com/example/meetus-signal/modules/activity"
	"github.com/example/meetus-signal/modules/api"
	"github.com/example/meetus-signal/modules/relay"
	"github.com/example/meetus-signal/modules/rooms"
	"github.com/example/meetus-signal/modules/transport"
)

var (
	opts     config.Options
	exitCode int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "meetus-signal",
	Short: "Room coordinator and WebRTC signaling relay",
	Long: `meetus-signal keeps track of video-call rooms and relays WebRTC signaling,
chat and file-transfer negotiation between the members of a room over WebSocket.
Every flag can also be set through the environment variable shown in its help.`,
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(opts)
		if err != nil {
			return err
		}
		exitCode = run(cfg)
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&opts.Host, "host", "", "listen host (HOST, default "+config.DefaultHost+")")
	f.StringVarP(&opts.Port, "port", "p", "", "listen port (PORT, default "+config.DefaultPort+")")
	f.StringVar(&opts.AllowedOrigins, "origins", "", "comma separated allowed origins (ALLOWED_ORIGINS)")
	f.StringVar(&opts.PasswordTTL, "password-ttl", "", "password lease lifetime (PASSWORD_TTL, default 30m)")
	f.StringVar(&opts.SweepInterval, "sweep-interval", "", "expired lease sweep interval (SWEEP_INTERVAL, default 5m)")
	f.StringVar(&opts.MaxRoomSize, "max-room-size", "", "members per room (MAX_ROOM_SIZE, default 10)")
	f.StringVar(&opts.MaxMessageSize, "max-message-size", "", "max inbound frame bytes (MAX_MESSAGE_SIZE, default 65536)")
	f.StringVar(&opts.PingInterval, "ping-interval", "", "keepalive ping interval (PING_INTERVAL, default 25s)")
	f.StringVar(&opts.PingTimeout, "ping-timeout", "", "idle read timeout (PING_TIMEOUT, default 60s)")
	f.StringVar(&opts.RateLimitEvents, "rate-limit-events", "", "inbound events per second per connection (RATE_LIMIT_EVENTS, default 50)")
	f.StringVar(&opts.RateLimitBurst, "rate-limit-burst", "", "inbound event burst per connection (RATE_LIMIT_BURST, default 100)")
	f.StringVar(&opts.ShutdownTimeout, "shutdown-timeout", "", "graceful shutdown timeout (SHUTDOWN_TIMEOUT, default 30s)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func run(cfg *config.Config) int {
	log.Println("=== MeetUs Signal - Room Coordinator + WebRTC Signaling Relay ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	roomsModule := rooms.NewModule(rooms.Config{
		MaxMembers:    cfg.MaxRoomSize,
		PasswordTTL:   cfg.PasswordTTL,
		SweepInterval: cfg.SweepInterval,
	}, logger.WithModule("rooms"))
	transportModule := transport.NewModule(transport.HubConfig{
		PingInterval: cfg.PingInterval,
	}, logger.WithModule("transport"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	apiModule := api.NewModule(api.Config{
		Addr:            cfg.Addr(),
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxMessageSize:  cfg.MaxMessageSize,
		PingTimeout:     cfg.PingTimeout,
		RateLimitEvents: cfg.RateLimitEvents,
		RateLimitBurst:  cfg.RateLimitBurst,
	}, logger.WithModule("api"))

	// The relay works on the coordinator and hub directly; neither is exposed
	// through a ServiceContainer.
	hub := transportModule.Hub()
	apiModule.SetHub(hub)
	apiModule.SetRelay(relay.New(roomsModule.Coordinator(), hub, logger.WithModule("relay")))
	apiModule.SetActivity(activityModule)

	// Register modules with the framework.
	// - rooms: Core domain (ServiceProviderModule + EventEmitterModule)
	// - transport: WebSocket connection hub
	// - activity: Event consumer (room counters)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on rooms)
	app.Register(roomsModule)
	app.Register(transportModule)
	app.Register(activityModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	code := <-wait
	log.Printf("Application exited with code: %d", code)
	return code
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("Allowed origins: %s", cfg.OriginsHeader())
	log.Printf("Rooms: max %d members, password lease %s", cfg.MaxRoomSize, cfg.PasswordTTL)
	log.Println("")
	log.Printf("REST API Endpoints (http://%s):", cfg.Addr())
	log.Println("  GET    /health                   - Health check")
	log.Println("  GET    /api/v1/rooms             - List live rooms")
	log.Println("  GET    /api/v1/rooms/:id         - Room info (password flag honours the lease)")
	log.Println("  GET    /api/v1/rooms/:id/members - Room members")
	log.Println("  GET    /api/v1/stats             - Room and activity counters")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://%s/ws):", cfg.Addr())
	log.Println(`  Frames: {"event": "<name>", "data": <payload>}`)
	log.Println("  Events: join-room, leave-room, get-rooms, delete-room, offer, answer,")
	log.Println("          ice-candidate, video-*, chat-message, file-*, end-call")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
