package rooms

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/meetus-signal/events"
)

// Config holds the rooms module settings.
type Config struct {
	MaxMembers    int
	PasswordTTL   time.Duration
	SweepInterval time.Duration
}

// Module owns the room Coordinator, its lease sweeper and the domain events
// derived from coordinator changes.
type Module struct {
	coord    *Coordinator
	sweeper  *Sweeper
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the rooms module.
func NewModule(cfg Config, logger types.Logger) *Module {
	m := &Module{logger: logger}
	m.coord = NewCoordinator(
		WithMaxMembers(cfg.MaxMembers),
		WithPasswordTTL(cfg.PasswordTTL),
		WithChangeFunc(m.publishChanges),
	)
	m.sweeper = NewSweeper(m.coord, cfg.SweepInterval, logger)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rooms"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.PasswordLeaseExpiredV1.ToBase(),
	}
}

// Start launches the lease sweeper.
func (m *Module) Start(_ context.Context) error {
	m.sweeper.Start()
	m.logger.Info("Rooms module started",
		"maxMembers", m.coord.MaxMembers(),
		"passwordTTL", m.coord.PasswordTTL().String(),
		"sweepInterval", m.sweeper.interval.String())
	return nil
}

// Stop halts the lease sweeper.
func (m *Module) Stop(ctx context.Context) error {
	if err := m.sweeper.Stop(ctx); err != nil {
		m.logger.Warn("Lease sweeper did not stop in time", "error", err)
		return err
	}
	stats := m.coord.Stats()
	m.logger.Info("Rooms module stopped", "rooms", stats.Rooms, "sessions", stats.Sessions)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	stats := m.coord.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":    stats.Rooms,
			"sessions": stats.Sessions,
			"leases":   stats.Leases,
		},
	}
}

// Coordinator returns the room coordinator for in-process callers.
func (m *Module) Coordinator() *Coordinator {
	return m.coord
}

// publishChanges turns coordinator changes into domain events. Publishing is
// best effort; failures are logged.
func (m *Module) publishChanges(changes []Change) {
	if m.eventBus == nil {
		return
	}
	for _, c := range changes {
		if err := m.publish(c); err != nil {
			m.logger.Warn("Failed to publish room event",
				"kind", c.Kind.String(),
				"roomID", c.RoomID,
				"error", err)
		}
	}
}

func (m *Module) publish(c Change) error {
	switch c.Kind {
	case RoomCreated:
		return events.RoomCreatedV1.Publish(m.eventBus, events.RoomCreatedEvent{
			RoomID:      c.RoomID,
			CreatedBy:   c.ConnID,
			HasPassword: c.HasPassword,
			Timestamp:   c.At,
		}, nil)
	case MemberJoined:
		return events.MemberJoinedV1.Publish(m.eventBus, events.MemberJoinedEvent{
			RoomID:    c.RoomID,
			ConnID:    c.ConnID,
			Username:  c.Username,
			Members:   c.Members,
			Timestamp: c.At,
		}, nil)
	case MemberLeft:
		return events.MemberLeftV1.Publish(m.eventBus, events.MemberLeftEvent{
			RoomID:    c.RoomID,
			ConnID:    c.ConnID,
			Username:  c.Username,
			Members:   c.Members,
			Timestamp: c.At,
		}, nil)
	case RoomDeleted:
		return events.RoomDeletedV1.Publish(m.eventBus, events.RoomDeletedEvent{
			RoomID:    c.RoomID,
			DeletedBy: c.DeletedBy,
			Emptied:   c.Emptied,
			Evicted:   c.Evicted,
			Timestamp: c.At,
		}, nil)
	case LeaseExpired:
		return events.PasswordLeaseExpiredV1.Publish(m.eventBus, events.PasswordLeaseExpiredEvent{
			RoomID:    c.RoomID,
			Timestamp: c.At,
		}, nil)
	}
	return nil
}
