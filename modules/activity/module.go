package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/meetus-signal/events"
)

// Snapshot is a point-in-time copy of the activity counters.
type Snapshot struct {
	RoomsCreated  int64     `json:"rooms_created"`
	RoomsDeleted  int64     `json:"rooms_deleted"`
	RoomsEmptied  int64     `json:"rooms_emptied"`
	Joins         int64     `json:"joins"`
	Leaves        int64     `json:"leaves"`
	Evictions     int64     `json:"evictions"`
	LeasesExpired int64     `json:"leases_expired"`
	PeakMembers   int       `json:"peak_members"`
	LastEventAt   time.Time `json:"last_event_at,omitzero"`
}

// Module consumes room events and keeps running counters.
type Module struct {
	mu     sync.RWMutex
	stats  Snapshot
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	s := m.Snapshot()
	m.logger.Info("Activity module stopped", "joins", s.Joins, "roomsCreated", s.RoomsCreated)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	s := m.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms_created":  s.RoomsCreated,
			"rooms_deleted":  s.RoomsDeleted,
			"joins":          s.Joins,
			"leaves":         s.Leaves,
			"leases_expired": s.LeasesExpired,
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDeletedV1, m.handleRoomDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberJoinedV1, m.handleMemberJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberLeftV1, m.handleMemberLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.PasswordLeaseExpiredV1, m.handleLeaseExpired, m,
	); err != nil {
		return fmt.Errorf("failed to register PasswordLeaseExpired consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", "RoomCreated,RoomDeleted,MemberJoined,MemberLeft,PasswordLeaseExpired")
	return nil
}

// Snapshot returns a copy of the counters.
func (m *Module) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Module) record(at time.Time, fn func(s *Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.stats)
	if at.After(m.stats.LastEventAt) {
		m.stats.LastEventAt = at
	}
}

// Event handlers

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.logger.Debug("Room created", "roomID", event.RoomID, "hasPassword", event.HasPassword)
	m.record(event.Timestamp, func(s *Snapshot) {
		s.RoomsCreated++
	})
	return nil
}

func (m *Module) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	m.logger.Debug("Room deleted", "roomID", event.RoomID, "emptied", event.Emptied)
	m.record(event.Timestamp, func(s *Snapshot) {
		s.RoomsDeleted++
		if event.Emptied {
			s.RoomsEmptied++
		}
		s.Evictions += int64(event.Evicted)
	})
	return nil
}

func (m *Module) handleMemberJoined(_ context.Context, event events.MemberJoinedEvent, _ *mono.Msg) error {
	m.record(event.Timestamp, func(s *Snapshot) {
		s.Joins++
		if event.Members > s.PeakMembers {
			s.PeakMembers = event.Members
		}
	})
	return nil
}

func (m *Module) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.record(event.Timestamp, func(s *Snapshot) {
		s.Leaves++
	})
	return nil
}

func (m *Module) handleLeaseExpired(_ context.Context, event events.PasswordLeaseExpiredEvent, _ *mono.Msg) error {
	m.logger.Debug("Password lease expired", "roomID", event.RoomID)
	m.record(event.Timestamp, func(s *Snapshot) {
		s.LeasesExpired++
	})
	return nil
}
