package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type frame struct {
	messageType int
	data        []byte
}

type fakeConn struct {
	mu       sync.Mutex
	frames   []frame
	closed   bool
	failNext bool
	block    chan struct{}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.frames = append(c.frames, frame{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) textFrames() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Envelope
	for _, f := range c.frames {
		if f.messageType != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(f.data, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

func (c *fakeConn) pings() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, f := range c.frames {
		if f.messageType == websocket.PingMessage {
			n++
		}
	}
	return n
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_SendDeliversEnvelope(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	conn := &fakeConn{}
	client, err := hub.Register("c1", conn)
	require.NoError(t, err)

	assert.True(t, hub.Send("c1", "user-joined", map[string]string{"id": "c2", "username": "bob"}))
	assert.True(t, hub.Send("c1", "get-rooms", nil))

	require.Eventually(t, func() bool {
		return len(conn.textFrames()) == 2
	}, time.Second, 5*time.Millisecond)

	frames := conn.textFrames()
	assert.Equal(t, "user-joined", frames[0].Event)
	assert.JSONEq(t, `{"id":"c2","username":"bob"}`, string(frames[0].Data))
	assert.Equal(t, "get-rooms", frames[1].Event)
	assert.Empty(t, frames[1].Data)

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_SendToUnknownConnection(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	assert.False(t, hub.Send("ghost", "offer", nil))
}

func TestHub_SendUnencodablePayload(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	client, err := hub.Register("c1", &fakeConn{})
	require.NoError(t, err)
	defer hub.Unregister(client)

	assert.False(t, hub.Send("c1", "bad", make(chan int)))
}

func TestHub_FullQueueDropsEvents(t *testing.T) {
	hub := NewHub(HubConfig{SendBuffer: 1}, &mockLogger{})
	conn := &fakeConn{block: make(chan struct{})}
	client, err := hub.Register("c1", conn)
	require.NoError(t, err)

	// The first event is taken by the pump and blocks in WriteMessage, the
	// second fills the queue, the rest are dropped.
	require.True(t, hub.Send("c1", "e1", nil))
	require.Eventually(t, func() bool {
		return hub.Send("c1", "e2", nil)
	}, time.Second, time.Millisecond)
	assert.False(t, hub.Send("c1", "e3", nil))

	close(conn.block)
	hub.Unregister(client)
}

func TestHub_WriteFailureClosesConnection(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	conn := &fakeConn{failNext: true}
	client, err := hub.Register("c1", conn)
	require.NoError(t, err)

	hub.Send("c1", "e1", nil)
	require.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Pings(t *testing.T) {
	hub := NewHub(HubConfig{PingInterval: 5 * time.Millisecond}, &mockLogger{})
	conn := &fakeConn{}
	client, err := hub.Register("c1", conn)
	require.NoError(t, err)
	defer hub.Unregister(client)

	assert.Eventually(t, func() bool {
		return conn.pings() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestHub_ReRegisterReplacesClient(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	first, err := hub.Register("c1", &fakeConn{})
	require.NoError(t, err)
	second, err := hub.Register("c1", &fakeConn{})
	require.NoError(t, err)

	// Unregistering the stale client must not drop the new one.
	hub.Unregister(first)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(second)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(HubConfig{}, &mockLogger{})
	conn := &fakeConn{}
	client, err := hub.Register("c1", conn)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	hub.Wait()

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, hub.ClientCount())
	assert.False(t, hub.Send("c1", "e1", nil))

	// The connection handler still unregisters after shutdown.
	hub.Unregister(client)

	_, err = hub.Register("c2", &fakeConn{})
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		event   string
		data    string
		wantErr bool
	}{
		{name: "with data", frame: `{"event":"join-room","data":{"roomId":"r1"}}`, event: "join-room", data: `{"roomId":"r1"}`},
		{name: "string data", frame: `{"event":"delete-room","data":"r1"}`, event: "delete-room", data: `"r1"`},
		{name: "no data", frame: `{"event":"get-rooms"}`, event: "get-rooms"},
		{name: "missing event", frame: `{"data":{}}`, wantErr: true},
		{name: "not json", frame: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.event, env.Event)
			assert.Equal(t, tt.data, string(env.Data))
		})
	}
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(HubConfig{}, &mockLogger{})
	assert.Equal(t, "transport", m.Name())

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	client, err := m.Hub().Register("c1", &fakeConn{})
	require.NoError(t, err)
	health := m.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["connected_clients"])

	require.NoError(t, m.Stop(ctx))
	m.Hub().Unregister(client)
}
