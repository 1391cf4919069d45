package api

import (
	"github.com/example/meetus-signal/domain/room"
	"github.com/example/meetus-signal/modules/activity"
	"github.com/example/meetus-signal/modules/rooms"
)

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []room.Summary `json:"rooms"`
}

// RoomInfoResponse is the API response for one room. Exists is false when
// the room is gone but its password lease is still active.
type RoomInfoResponse struct {
	room.Summary
	Exists bool `json:"exists"`
}

// StatsResponse is the API response for GET /api/v1/stats.
type StatsResponse struct {
	Rooms            rooms.Stats        `json:"rooms"`
	Activity         *activity.Snapshot `json:"activity,omitempty"`
	ConnectedClients int                `json:"connected_clients"`
}

// ConnectedMessage is sent to every new WebSocket connection so the client
// learns its own connection id.
type ConnectedMessage struct {
	ID string `json:"id"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
