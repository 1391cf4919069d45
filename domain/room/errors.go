package room

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrValidation indicates a missing or malformed required field.
	ErrValidation = errors.New("validation error")
	// ErrAuth indicates a wrong room password.
	ErrAuth = errors.New("auth error")
	// ErrConflict indicates a display name already used in the room.
	ErrConflict = errors.New("conflict error")
	// ErrCapacity indicates the room is full.
	ErrCapacity = errors.New("capacity error")
	// ErrNotFound indicates the room does not exist.
	ErrNotFound = errors.New("not found error")
	// ErrPermission indicates the requester may not perform the operation.
	ErrPermission = errors.New("permission error")
)

// Error carries a client-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ErrRoomIDRequired is returned when a join names no room.
func ErrRoomIDRequired() error { return newError(ErrValidation, "Room ID is required") }

// ErrUsernameRequired is returned when a join carries no display name.
func ErrUsernameRequired() error { return newError(ErrValidation, "Username is required") }

// ErrInvalidPassword is returned when the supplied password does not match.
func ErrInvalidPassword() error { return newError(ErrAuth, "Invalid password") }

// ErrUsernameTaken is returned when the display name is used by another member.
func ErrUsernameTaken(username string) error {
	return newError(ErrConflict, "Username '%s' is already taken in this room", username)
}

// ErrRoomFull is returned when the room already holds max members.
func ErrRoomFull(limit int) error {
	return newError(ErrCapacity, "Room is full (max %d users)", limit)
}

// ErrRoomNotFound is returned for operations on a room that does not exist.
func ErrRoomNotFound() error { return newError(ErrNotFound, "Room not found") }

// ErrNotCreator is returned when someone other than the creator deletes a room.
func ErrNotCreator() error {
	return newError(ErrPermission, "Only the room creator can delete the room")
}
