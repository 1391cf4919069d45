package rooms

import (
	"slices"
	"strings"
	"time"

	"github.com/example/meetus-signal/domain/room"
)

// roomState is the mutable record behind a live room.
type roomState struct {
	id        string
	members   []room.Member // join order
	password  string
	createdAt time.Time
	createdBy string
}

func (s *roomState) snapshot() room.Snapshot {
	return room.Snapshot{
		RoomID:      s.id,
		Members:     slices.Clone(s.members),
		HasPassword: s.password != "",
		CreatedBy:   s.createdBy,
		CreatedAt:   s.createdAt,
	}
}

func (s *roomState) indexOf(connID string) int {
	return slices.IndexFunc(s.members, func(m room.Member) bool {
		return m.ID == connID
	})
}

func (s *roomState) remove(connID string) bool {
	i := s.indexOf(connID)
	if i < 0 {
		return false
	}
	s.members = slices.Delete(s.members, i, i+1)
	return true
}

// nameTaken reports whether another connection already uses username.
func (s *roomState) nameTaken(username, connID string) bool {
	return slices.ContainsFunc(s.members, func(m room.Member) bool {
		return m.ID != connID && strings.EqualFold(m.Username, username)
	})
}

// occupancy is the member count ignoring connID's own entry.
func (s *roomState) occupancy(connID string) int {
	n := len(s.members)
	if s.indexOf(connID) >= 0 {
		n--
	}
	return n
}

// roomRegistry maps a room id to its state. Guarded by the Coordinator.
type roomRegistry struct {
	rooms map[string]*roomState
}

func newRoomRegistry() *roomRegistry {
	return &roomRegistry{rooms: make(map[string]*roomState)}
}

func (r *roomRegistry) get(roomID string) (*roomState, bool) {
	s, ok := r.rooms[roomID]
	return s, ok
}

func (r *roomRegistry) put(s *roomState) {
	r.rooms[s.id] = s
}

func (r *roomRegistry) remove(roomID string) {
	delete(r.rooms, roomID)
}

func (r *roomRegistry) len() int {
	return len(r.rooms)
}

// all returns the rooms ordered by creation time, then id.
func (r *roomRegistry) all() []*roomState {
	out := make([]*roomState, 0, len(r.rooms))
	for _, s := range r.rooms {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *roomState) int {
		if c := a.createdAt.Compare(b.createdAt); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	return out
}
