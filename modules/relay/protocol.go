package relay

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Inbound event names.
const (
	EventJoinRoom          = "join-room"
	EventLeaveRoom         = "leave-room"
	EventGetRooms          = "get-rooms"
	EventDeleteRoom        = "delete-room"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventICECandidate      = "ice-candidate"
	EventVideoOffer        = "video-offer"
	EventVideoAnswer       = "video-answer"
	EventVideoICECandidate = "video-ice-candidate"
	EventChatMessage       = "chat-message"
	EventFileMetadata      = "file-metadata"
	EventFileAccepted      = "file-accepted"
	EventFileRejected      = "file-rejected"
	EventEndCall           = "end-call"
)

// Outbound event names that differ from the inbound ones.
const (
	EventJoinSuccess   = "join-success"
	EventJoinError     = "join-error"
	EventExistingUsers = "existing-users"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventUserEndedCall = "user-ended-call"
	EventRoomList      = "room-list"
	EventRoomDeleted   = "room-deleted"
	EventDeleteError   = "delete-error"
	EventError         = "error"
)

// JoinRoomRequest is the join-room payload.
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// JoinSuccess is sent to a connection that joined a room. The password is
// echoed back so the client can share the room link.
type JoinSuccess struct {
	RoomID      string `json:"roomId"`
	Username    string `json:"username"`
	HasPassword bool   `json:"hasPassword"`
	Password    string `json:"password"`
	IsCreator   bool   `json:"isCreator"`
}

// ErrorMessage is the payload of join-error, delete-error and error.
type ErrorMessage struct {
	Message string `json:"message"`
}

// RoomDeleted is broadcast to every member of a deleted room.
type RoomDeleted struct {
	RoomID    string `json:"roomId"`
	DeletedBy string `json:"deletedBy"`
}

// CallEnded is the user-ended-call payload for an explicit end-call.
type CallEnded struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// SignalRequest is the inbound payload of every offer, answer and ICE event.
// Signaling values are forwarded untouched.
type SignalRequest struct {
	To        string          `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// OfferMessage is relayed for offer and video-offer.
type OfferMessage struct {
	From     string          `json:"from"`
	Offer    json.RawMessage `json:"offer"`
	Username string          `json:"username"`
}

// AnswerMessage is relayed for answer and video-answer.
type AnswerMessage struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

// CandidateMessage is relayed for ice-candidate and video-ice-candidate.
type CandidateMessage struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// ChatRequest is the inbound chat-message payload. The timestamp is the
// sender's and is relayed verbatim.
type ChatRequest struct {
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// ChatMessage is relayed to the other members of the sender's room.
type ChatMessage struct {
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// FileMetadataRequest announces a file offer to one peer.
type FileMetadataRequest struct {
	To       string `json:"to"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// FileMetadata is relayed to the target of a file offer.
type FileMetadata struct {
	From     string `json:"from"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
	Username string `json:"username"`
}

// TargetRequest carries only a target connection id.
type TargetRequest struct {
	To string `json:"to"`
}

// FromMessage carries only the sender connection id.
type FromMessage struct {
	From string `json:"from"`
}

var errEmptyPayload = errors.New("empty payload")

// decode unmarshals data into v. A missing or null payload decodes to the
// zero value.
func decode(data json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, v)
}

// decodeRoomID accepts a bare JSON string or an object with a roomId field.
func decodeRoomID(data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errEmptyPayload
	}
	if trimmed[0] == '{' {
		var req struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return "", err
		}
		return req.RoomID, nil
	}
	var roomID string
	if err := json.Unmarshal(trimmed, &roomID); err != nil {
		return "", err
	}
	return roomID, nil
}
