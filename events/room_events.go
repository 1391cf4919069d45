package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when the first join creates a room.
type RoomCreatedEvent struct {
	RoomID      string    `json:"room_id"`
	CreatedBy   string    `json:"created_by"`
	HasPassword bool      `json:"has_password"`
	Timestamp   time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted when a room is removed, either because its
// creator deleted it or because its last member left.
type RoomDeletedEvent struct {
	RoomID    string    `json:"room_id"`
	DeletedBy string    `json:"deleted_by,omitempty"`
	Emptied   bool      `json:"emptied"`
	Evicted   int       `json:"evicted"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberJoinedEvent is emitted when a connection joins a room.
type MemberJoinedEvent struct {
	RoomID    string    `json:"room_id"`
	ConnID    string    `json:"conn_id"`
	Username  string    `json:"username"`
	Members   int       `json:"members"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a connection leaves a room.
type MemberLeftEvent struct {
	RoomID    string    `json:"room_id"`
	ConnID    string    `json:"conn_id"`
	Username  string    `json:"username"`
	Members   int       `json:"members"`
	Timestamp time.Time `json:"timestamp"`
}

// PasswordLeaseExpiredEvent is emitted by the lease sweep.
type PasswordLeaseExpiredEvent struct {
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the rooms domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"rooms",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"rooms",
		"RoomDeleted",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"rooms",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"rooms",
		"MemberLeft",
		"v1",
	)

	PasswordLeaseExpiredV1 = helper.EventDefinition[PasswordLeaseExpiredEvent](
		"rooms",
		"PasswordLeaseExpired",
		"v1",
	)
)
