package room

import "time"

// Member is a connection currently joined to a room.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Snapshot is an immutable copy of a room's state at one point in time.
type Snapshot struct {
	RoomID      string    `json:"roomId"`
	Members     []Member  `json:"members"`
	HasPassword bool      `json:"hasPassword"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsCreator reports whether connID created the room.
func (s Snapshot) IsCreator(connID string) bool {
	return s.CreatedBy == connID
}

// Others returns the members except the one with the given connection id.
func (s Snapshot) Others(connID string) []Member {
	others := make([]Member, 0, len(s.Members))
	for _, m := range s.Members {
		if m.ID != connID {
			others = append(others, m)
		}
	}
	return others
}

// Summary is the public listing entry for a room.
type Summary struct {
	RoomID      string `json:"roomId"`
	UserCount   int    `json:"userCount"`
	HasPassword bool   `json:"hasPassword"`
}

// Session binds a live connection to its current room and display name.
type Session struct {
	ConnID   string `json:"connId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// Departure describes a connection that was removed from a room.
// Members is the membership captured before the removal, leaver included.
type Departure struct {
	RoomID   string
	ConnID   string
	Username string
	Members  []Member
	// Emptied is set when the room was deleted because it became empty.
	Emptied bool
}

// Recipients returns the members that should hear about the departure.
func (d Departure) Recipients() []Member {
	out := make([]Member, 0, len(d.Members))
	for _, m := range d.Members {
		if m.ID != d.ConnID {
			out = append(out, m)
		}
	}
	return out
}
