package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/meetus-signal/domain/room"
)

// RegisterServices registers the read-only request-reply services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceListRooms,
		json.Unmarshal,
		json.Marshal,
		m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceRoomInfo,
		json.Unmarshal,
		json.Marshal,
		m.roomInfo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRoomInfo, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceGetRoom,
		json.Unmarshal,
		json.Marshal,
		m.getRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoom, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceStats,
		json.Unmarshal,
		json.Marshal,
		m.stats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceStats, err)
	}

	m.logger.Info("Registered services",
		"services", strings.Join([]string{ServiceListRooms, ServiceRoomInfo, ServiceGetRoom, ServiceStats}, ","))
	return nil
}

func (m *Module) listRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	return ListRoomsResponse{Rooms: m.coord.Summaries()}, nil
}

func (m *Module) roomInfo(_ context.Context, req RoomInfoRequest, _ *mono.Msg) (RoomInfoResponse, error) {
	if strings.TrimSpace(req.RoomID) == "" {
		return RoomInfoResponse{}, room.ErrRoomIDRequired()
	}
	sum, exists := m.coord.Info(req.RoomID)
	return RoomInfoResponse{
		Room:   sum,
		Exists: exists,
	}, nil
}

func (m *Module) getRoom(_ context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	snap, ok := m.coord.Room(req.RoomID)
	if !ok {
		return GetRoomResponse{Found: false}, nil
	}
	return GetRoomResponse{Room: newRoomDetails(snap), Found: true}, nil
}

func (m *Module) stats(_ context.Context, _ StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	return StatsResponse{Stats: m.coord.Stats()}, nil
}
