// Package relay routes inbound client events to the connections that should
// receive them. It keeps no room state of its own: every recipient list
// comes from a coordinator result for the event being handled.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/meetus-signal/domain/room"
	"github.com/example/meetus-signal/modules/rooms"
)

// Transport delivers one event to one connection. Send reports whether the
// connection was live; delivery is best effort.
type Transport interface {
	Send(connID, event string, payload any) bool
}

// Coordinator is the subset of rooms.Coordinator the relay needs.
type Coordinator interface {
	Join(roomID, connID, username, password string) (rooms.JoinResult, error)
	Leave(connID string) (room.Departure, bool)
	Delete(roomID, requesterID string) (room.Snapshot, error)
	Summaries() []room.Summary
	Session(connID string) (room.Session, bool)
	Current(connID string) (room.Session, room.Snapshot, bool)
}

type handlerFunc func(event, connID string, data json.RawMessage) error

// Relay translates inbound events into outbound ones.
type Relay struct {
	coord     Coordinator
	transport Transport
	logger    types.Logger
	handlers  map[string]handlerFunc
}

// New creates a Relay.
func New(coord Coordinator, transport Transport, logger types.Logger) *Relay {
	r := &Relay{
		coord:     coord,
		transport: transport,
		logger:    logger,
	}
	r.handlers = map[string]handlerFunc{
		EventJoinRoom:          r.handleJoin,
		EventLeaveRoom:         r.handleLeave,
		EventGetRooms:          r.handleGetRooms,
		EventDeleteRoom:        r.handleDelete,
		EventOffer:             r.handleSignal,
		EventVideoOffer:        r.handleSignal,
		EventAnswer:            r.handleSignal,
		EventVideoAnswer:       r.handleSignal,
		EventICECandidate:      r.handleSignal,
		EventVideoICECandidate: r.handleSignal,
		EventChatMessage:       r.handleChat,
		EventFileMetadata:      r.handleFileMetadata,
		EventFileAccepted:      r.handleFileReply,
		EventFileRejected:      r.handleFileReply,
		EventEndCall:           r.handleEndCall,
	}
	return r
}

// Dispatch handles one inbound event from connID. Unknown events are
// ignored. A payload that cannot be decoded is answered with an error event.
func (r *Relay) Dispatch(connID, event string, data json.RawMessage) {
	h, ok := r.handlers[event]
	if !ok {
		r.logger.Debug("Ignoring unknown event", "connID", connID, "event", event)
		return
	}
	if err := h(event, connID, data); err != nil {
		r.logger.Warn("Malformed event payload", "connID", connID, "event", event, "error", err)
		r.transport.Send(connID, EventError, ErrorMessage{
			Message: fmt.Sprintf("Malformed %s payload", event),
		})
	}
}

// Disconnect removes connID from its room and notifies the remaining members.
func (r *Relay) Disconnect(connID string) {
	dep, ok := r.coord.Leave(connID)
	if !ok {
		return
	}
	r.logger.Info("Connection left room on disconnect", "connID", connID, "roomID", dep.RoomID)
	r.notifyDeparture(dep)
}

func (r *Relay) handleJoin(_, connID string, data json.RawMessage) error {
	var req JoinRoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	res, err := r.coord.Join(req.RoomID, connID, req.Username, req.Password)
	if err != nil {
		r.logger.Info("Join rejected", "connID", connID, "roomID", req.RoomID, "error", err)
		r.transport.Send(connID, EventJoinError, ErrorMessage{Message: err.Error()})
		return nil
	}

	if res.Previous != nil {
		r.notifyDeparture(*res.Previous)
	}

	snap := res.Room
	r.transport.Send(connID, EventJoinSuccess, JoinSuccess{
		RoomID:      snap.RoomID,
		Username:    req.Username,
		HasPassword: snap.HasPassword,
		Password:    req.Password,
		IsCreator:   snap.IsCreator(connID),
	})
	r.transport.Send(connID, EventExistingUsers, snap.Members)

	joined := room.Member{ID: connID, Username: req.Username}
	for _, m := range snap.Others(connID) {
		r.transport.Send(m.ID, EventUserJoined, joined)
	}

	r.logger.Info("Joined room",
		"connID", connID,
		"roomID", snap.RoomID,
		"members", len(snap.Members),
		"created", res.Created)
	return nil
}

func (r *Relay) handleLeave(_, connID string, _ json.RawMessage) error {
	// The payload names a room, but the sender's session is authoritative.
	dep, ok := r.coord.Leave(connID)
	if !ok {
		return nil
	}
	r.logger.Info("Left room", "connID", connID, "roomID", dep.RoomID)
	r.notifyDeparture(dep)
	return nil
}

// notifyDeparture tells every member present before the removal, except the
// leaver, that the leaver is gone.
func (r *Relay) notifyDeparture(dep room.Departure) {
	leaver := room.Member{ID: dep.ConnID, Username: dep.Username}
	for _, m := range dep.Recipients() {
		r.transport.Send(m.ID, EventUserLeft, leaver)
		r.transport.Send(m.ID, EventUserEndedCall, leaver)
	}
}

func (r *Relay) handleGetRooms(_, connID string, _ json.RawMessage) error {
	r.transport.Send(connID, EventRoomList, r.coord.Summaries())
	return nil
}

func (r *Relay) handleDelete(_, connID string, data json.RawMessage) error {
	roomID, err := decodeRoomID(data)
	if err != nil {
		return err
	}

	snap, err := r.coord.Delete(strings.TrimSpace(roomID), connID)
	if err != nil {
		r.logger.Info("Delete rejected", "connID", connID, "roomID", roomID, "error", err)
		r.transport.Send(connID, EventDeleteError, ErrorMessage{Message: err.Error()})
		return nil
	}

	msg := RoomDeleted{RoomID: snap.RoomID, DeletedBy: connID}
	for _, m := range snap.Members {
		r.transport.Send(m.ID, EventRoomDeleted, msg)
	}
	r.logger.Info("Room deleted", "roomID", snap.RoomID, "deletedBy", connID, "evicted", len(snap.Members))
	return nil
}

// handleSignal forwards a WebRTC signaling event to its target under the
// same event name.
func (r *Relay) handleSignal(event, connID string, data json.RawMessage) error {
	var req SignalRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.To == "" {
		return nil
	}

	var payload any
	switch event {
	case EventOffer, EventVideoOffer:
		payload = OfferMessage{From: connID, Offer: req.Offer, Username: r.username(connID)}
	case EventAnswer, EventVideoAnswer:
		payload = AnswerMessage{From: connID, Answer: req.Answer}
	default:
		payload = CandidateMessage{From: connID, Candidate: req.Candidate}
	}

	if !r.transport.Send(req.To, event, payload) {
		r.logger.Debug("Signal target not connected", "event", event, "from", connID, "to", req.To)
	}
	return nil
}

func (r *Relay) handleChat(_, connID string, data json.RawMessage) error {
	var req ChatRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	snap, session, ok := r.currentRoom(connID)
	if !ok {
		return nil
	}

	msg := ChatMessage{
		Username:  session.Username,
		Message:   req.Message,
		Timestamp: req.Timestamp,
	}
	for _, m := range snap.Others(connID) {
		r.transport.Send(m.ID, EventChatMessage, msg)
	}
	return nil
}

func (r *Relay) handleFileMetadata(_, connID string, data json.RawMessage) error {
	var req FileMetadataRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.To == "" {
		return nil
	}

	r.transport.Send(req.To, EventFileMetadata, FileMetadata{
		From:     connID,
		FileName: req.FileName,
		FileSize: req.FileSize,
		FileType: req.FileType,
		Username: r.username(connID),
	})
	return nil
}

// handleFileReply relays file-accepted and file-rejected.
func (r *Relay) handleFileReply(event, connID string, data json.RawMessage) error {
	var req TargetRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if req.To == "" {
		return nil
	}
	r.transport.Send(req.To, event, FromMessage{From: connID})
	return nil
}

func (r *Relay) handleEndCall(_, connID string, _ json.RawMessage) error {
	snap, session, ok := r.currentRoom(connID)
	if !ok {
		return nil
	}

	msg := CallEnded{UserID: connID, Username: session.Username}
	for _, m := range snap.Others(connID) {
		r.transport.Send(m.ID, EventUserEndedCall, msg)
	}
	return nil
}

// currentRoom resolves the sender's session and a snapshot of its room in
// one coordinator read.
func (r *Relay) currentRoom(connID string) (room.Snapshot, room.Session, bool) {
	session, snap, ok := r.coord.Current(connID)
	return snap, session, ok
}

func (r *Relay) username(connID string) string {
	if s, ok := r.coord.Session(connID); ok {
		return s.Username
	}
	return ""
}
