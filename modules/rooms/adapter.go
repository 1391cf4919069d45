package rooms

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/meetus-signal/domain/room"
)

// RoomsPort is the read side of the rooms module as seen by other modules.
type RoomsPort interface {
	ListRooms(ctx context.Context) ([]room.Summary, error)
	RoomInfo(ctx context.Context, roomID string) (room.Summary, bool, error)
	GetRoom(ctx context.Context, roomID string) (*RoomDetails, error)
	Stats(ctx context.Context) (Stats, error)
}

// roomsAdapter calls the rooms services through a mono.ServiceContainer.
type roomsAdapter struct {
	container mono.ServiceContainer
}

// NewRoomsAdapter creates a RoomsPort backed by the rooms module's services.
func NewRoomsAdapter(container mono.ServiceContainer) RoomsPort {
	if container == nil {
		panic("rooms adapter requires non-nil ServiceContainer")
	}
	return &roomsAdapter{container: container}
}

// ListRooms returns every live room summary.
func (a *roomsAdapter) ListRooms(ctx context.Context) ([]room.Summary, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceListRooms, err)
	}
	if resp.Rooms == nil {
		resp.Rooms = []room.Summary{}
	}
	return resp.Rooms, nil
}

// RoomInfo returns the summary of roomID and whether the room is live.
func (a *roomsAdapter) RoomInfo(ctx context.Context, roomID string) (room.Summary, bool, error) {
	req := RoomInfoRequest{RoomID: roomID}
	var resp RoomInfoResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRoomInfo,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return room.Summary{}, false, fmt.Errorf("%s service call failed: %w", ServiceRoomInfo, err)
	}
	return resp.Room, resp.Exists, nil
}

// GetRoom returns the details of a live room.
func (a *roomsAdapter) GetRoom(ctx context.Context, roomID string) (*RoomDetails, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetRoom,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", ServiceGetRoom, err)
	}

	if !resp.Found {
		return nil, room.ErrRoomNotFound()
	}
	return resp.Room, nil
}

// Stats returns the coordinator registry sizes.
func (a *roomsAdapter) Stats(ctx context.Context) (Stats, error) {
	req := StatsRequest{}
	var resp StatsResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return Stats{}, fmt.Errorf("%s service call failed: %w", ServiceStats, err)
	}
	return resp.Stats, nil
}
