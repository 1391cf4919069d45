package api

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetus-signal/modules/relay"
	"github.com/example/meetus-signal/modules/transport"
)

const testOrigin = "http://localhost:3000"

// serve runs the module's app on a loopback listener and returns its ws URL.
func serve(t *testing.T, m *APIModule) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := m.buildApp()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws"
}

type wsClient struct {
	t    *testing.T
	conn *gws.Conn
	id   string
}

func dial(t *testing.T, url string) *wsClient {
	t.Helper()
	conn, resp, err := gws.DefaultDialer.Dial(url, http.Header{"Origin": {testOrigin}})
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{t: t, conn: conn}
	env := c.read()
	require.Equal(t, EventConnected, env.Event)

	var hello ConnectedMessage
	require.NoError(t, json.Unmarshal(env.Data, &hello))
	require.NotEmpty(t, hello.ID)
	c.id = hello.ID
	return c
}

func (c *wsClient) send(event string, payload any) {
	c.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	frame, err := json.Marshal(transport.Envelope{Event: event, Data: data})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(gws.TextMessage, frame))
}

func (c *wsClient) read() transport.Envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := c.conn.ReadMessage()
	require.NoError(c.t, err)

	var env transport.Envelope
	require.NoError(c.t, json.Unmarshal(frame, &env))
	return env
}

func (c *wsClient) expect(event string) json.RawMessage {
	c.t.Helper()
	env := c.read()
	require.Equal(c.t, event, env.Event, "payload: %s", env.Data)
	return env.Data
}

func TestWebSocket_CallFlow(t *testing.T) {
	url := serve(t, newTestModule(&mockRoomsPort{}))

	alice := dial(t, url)
	alice.send(relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "standup", Username: "alice", Password: "pw"})
	assert.JSONEq(t,
		`{"roomId":"standup","username":"alice","hasPassword":true,"password":"pw","isCreator":true}`,
		string(alice.expect(relay.EventJoinSuccess)))
	alice.expect(relay.EventExistingUsers)

	bob := dial(t, url)
	bob.send(relay.EventJoinRoom, relay.JoinRoomRequest{RoomID: "standup", Username: "bob", Password: "pw"})
	bob.expect(relay.EventJoinSuccess)
	bob.expect(relay.EventExistingUsers)
	assert.JSONEq(t, `{"id":"`+bob.id+`","username":"bob"}`, string(alice.expect(relay.EventUserJoined)))

	// Offer from bob reaches alice tagged with bob's id and name.
	bob.send(relay.EventOffer, map[string]any{"to": alice.id, "offer": map[string]string{"type": "offer", "sdp": "v=0"}})
	assert.JSONEq(t,
		`{"from":"`+bob.id+`","offer":{"type":"offer","sdp":"v=0"},"username":"bob"}`,
		string(alice.expect(relay.EventOffer)))

	alice.send(relay.EventChatMessage, map[string]any{"message": "hi", "timestamp": 1000})
	assert.JSONEq(t, `{"username":"alice","message":"hi","timestamp":1000}`, string(bob.expect(relay.EventChatMessage)))

	// Dropping the socket is a disconnect.
	require.NoError(t, alice.conn.Close())
	left := `{"id":"` + alice.id + `","username":"alice"}`
	assert.JSONEq(t, left, string(bob.expect(relay.EventUserLeft)))
	assert.JSONEq(t, left, string(bob.expect(relay.EventUserEndedCall)))
}

func TestWebSocket_InvalidFrame(t *testing.T) {
	c := dial(t, serve(t, newTestModule(&mockRoomsPort{})))

	require.NoError(t, c.conn.WriteMessage(gws.TextMessage, []byte("not json")))
	assert.JSONEq(t, `{"message":"Invalid message format"}`, string(c.expect(relay.EventError)))

	// The connection stays usable.
	c.send(relay.EventGetRooms, nil)
	assert.JSONEq(t, `[]`, string(c.expect(relay.EventRoomList)))
}

func TestWebSocket_RateLimit(t *testing.T) {
	m := newTestModule(&mockRoomsPort{})
	m.cfg.RateLimitEvents = 0.001
	m.cfg.RateLimitBurst = 1
	c := dial(t, serve(t, m))

	c.send(relay.EventGetRooms, nil)
	c.send(relay.EventGetRooms, nil)

	c.expect(relay.EventRoomList)
	assert.JSONEq(t, `{"message":"Rate limit exceeded"}`, string(c.expect(relay.EventError)))
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	url := serve(t, newTestModule(&mockRoomsPort{}))

	conn, resp, err := gws.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	if resp != nil {
		_ = resp.Body.Close()
		assert.NotEqual(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
}
