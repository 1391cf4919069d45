package rooms

import (
	"context"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetus-signal/domain/room"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(Config{SweepInterval: 10 * time.Millisecond}, &mockLogger{})
	assert.Equal(t, "rooms", m.Name())
	assert.Len(t, m.EmitEvents(), 5)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	_, err := m.Coordinator().Join("r1", "a", "alice", "pw")
	require.NoError(t, err)

	health := m.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["rooms"])
	assert.Equal(t, 1, health.Details["sessions"])
	assert.Equal(t, 1, health.Details["leases"])

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
}

func TestModule_StopWithoutStart(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.NoError(t, m.Stop(context.Background()))
}

func TestModule_DefaultsApplied(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})
	assert.Equal(t, DefaultMaxMembers, m.Coordinator().MaxMembers())
	assert.Equal(t, DefaultPasswordTTL, m.Coordinator().PasswordTTL())
	assert.Equal(t, DefaultSweepInterval, m.sweeper.interval)
}

func TestModule_PublishWithoutEventBus(t *testing.T) {
	m := NewModule(Config{}, &mockLogger{})

	// Without an event bus the change hook is a no-op.
	_, err := m.Coordinator().Join("r1", "a", "alice", "")
	require.NoError(t, err)
	_, ok := m.Coordinator().Leave("a")
	assert.True(t, ok)
}

func TestModule_Services(t *testing.T) {
	ctx := context.Background()
	m := NewModule(Config{}, &mockLogger{})
	coord := m.Coordinator()

	_, err := coord.Join("r1", "a", "alice", "pw")
	require.NoError(t, err)
	_, err = coord.Join("r1", "b", "bob", "pw")
	require.NoError(t, err)
	_, err = coord.Join("gone", "c", "carol", "secret")
	require.NoError(t, err)
	coord.Leave("c")

	t.Run("list-rooms", func(t *testing.T) {
		resp, err := m.listRooms(ctx, ListRoomsRequest{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []room.Summary{{RoomID: "r1", UserCount: 2, HasPassword: true}}, resp.Rooms)
	})

	t.Run("room-info live room", func(t *testing.T) {
		resp, err := m.roomInfo(ctx, RoomInfoRequest{RoomID: "r1"}, nil)
		require.NoError(t, err)
		assert.True(t, resp.Exists)
		assert.Equal(t, room.Summary{RoomID: "r1", UserCount: 2, HasPassword: true}, resp.Room)
	})

	t.Run("room-info within lease window", func(t *testing.T) {
		resp, err := m.roomInfo(ctx, RoomInfoRequest{RoomID: "gone"}, nil)
		require.NoError(t, err)
		assert.False(t, resp.Exists)
		assert.True(t, resp.Room.HasPassword)
		assert.Zero(t, resp.Room.UserCount)
	})

	t.Run("room-info requires id", func(t *testing.T) {
		_, err := m.roomInfo(ctx, RoomInfoRequest{RoomID: " "}, nil)
		assert.ErrorIs(t, err, room.ErrValidation)
	})

	t.Run("get-room", func(t *testing.T) {
		resp, err := m.getRoom(ctx, GetRoomRequest{RoomID: "r1"}, nil)
		require.NoError(t, err)
		require.True(t, resp.Found)
		assert.Equal(t, 2, resp.Room.UserCount)
		assert.Equal(t, "a", resp.Room.CreatedBy)
		assert.Equal(t, []room.Member{{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}}, resp.Room.Members)

		resp, err = m.getRoom(ctx, GetRoomRequest{RoomID: "gone"}, nil)
		require.NoError(t, err)
		assert.False(t, resp.Found)
		assert.Nil(t, resp.Room)
	})

	t.Run("room-stats", func(t *testing.T) {
		resp, err := m.stats(ctx, StatsRequest{}, nil)
		require.NoError(t, err)
		assert.Equal(t, Stats{Rooms: 1, Sessions: 2, Leases: 2}, resp.Stats)
	})
}
