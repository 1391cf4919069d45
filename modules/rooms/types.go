package rooms

import (
	"time"

	"github.com/example/meetus-signal/domain/room"
)

// Service names registered by the rooms module.
const (
	ServiceListRooms = "list-rooms"
	ServiceRoomInfo  = "room-info"
	ServiceGetRoom   = "get-room"
	ServiceStats     = "room-stats"
)

// ListRoomsRequest is the request for the list-rooms service.
type ListRoomsRequest struct{}

// ListRoomsResponse carries every live room summary.
type ListRoomsResponse struct {
	Rooms []room.Summary `json:"rooms"`
}

// RoomInfoRequest asks for one room summary.
type RoomInfoRequest struct {
	RoomID string `json:"room_id"`
}

// RoomInfoResponse is the summary of one room. Exists is false when the
// room is gone, in which case HasPassword reflects the password lease.
type RoomInfoResponse struct {
	Room   room.Summary `json:"room"`
	Exists bool         `json:"exists"`
}

// GetRoomRequest asks for the member list of a live room.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// RoomDetails is a room snapshot as exposed to other modules. It never
// carries the password.
type RoomDetails struct {
	RoomID      string        `json:"roomId"`
	Members     []room.Member `json:"members"`
	UserCount   int           `json:"userCount"`
	HasPassword bool          `json:"hasPassword"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// GetRoomResponse is the response for the get-room service.
type GetRoomResponse struct {
	Room  *RoomDetails `json:"room,omitempty"`
	Found bool         `json:"found"`
}

// StatsRequest is the request for the room-stats service.
type StatsRequest struct{}

// StatsResponse reports coordinator registry sizes.
type StatsResponse struct {
	Stats Stats `json:"stats"`
}

func newRoomDetails(s room.Snapshot) *RoomDetails {
	return &RoomDetails{
		RoomID:      s.RoomID,
		Members:     s.Members,
		UserCount:   len(s.Members),
		HasPassword: s.HasPassword,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
	}
}
