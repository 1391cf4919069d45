package rooms

import (
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/example/meetus-signal/domain/room"
)

// DefaultMaxMembers is the room capacity.
const DefaultMaxMembers = 10

// ChangeKind identifies a state transition reported by the Coordinator.
type ChangeKind int

const (
	// RoomCreated is reported when a join creates a room.
	RoomCreated ChangeKind = iota + 1
	// MemberJoined is reported for every successful join.
	MemberJoined
	// MemberLeft is reported when a connection leaves or switches rooms.
	MemberLeft
	// RoomDeleted is reported when a room empties or its creator deletes it.
	RoomDeleted
	// LeaseExpired is reported for each password lease dropped by a sweep.
	LeaseExpired
)

func (k ChangeKind) String() string {
	switch k {
	case RoomCreated:
		return "room_created"
	case MemberJoined:
		return "member_joined"
	case MemberLeft:
		return "member_left"
	case RoomDeleted:
		return "room_deleted"
	case LeaseExpired:
		return "lease_expired"
	default:
		return "unknown"
	}
}

// Change describes one committed transition.
type Change struct {
	Kind        ChangeKind
	RoomID      string
	ConnID      string
	Username    string
	Members     int
	HasPassword bool
	DeletedBy   string
	// Emptied is set on RoomDeleted when the last member left.
	Emptied bool
	Evicted int
	At      time.Time
}

// ChangeFunc receives the changes of one operation after the lock is released.
type ChangeFunc func(changes []Change)

// JoinResult is returned by a successful Join.
type JoinResult struct {
	Room    room.Snapshot
	Created bool
	// Previous is set when the connection switched away from another room.
	Previous *room.Departure
}

// Stats reports registry sizes.
type Stats struct {
	Rooms    int `json:"rooms"`
	Sessions int `json:"sessions"`
	Leases   int `json:"leases"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithPasswordTTL sets the password lease lifetime.
func WithPasswordTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.leases = newLeaseStore(ttl)
	}
}

// WithMaxMembers sets the room capacity.
func WithMaxMembers(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxMembers = n
		}
	}
}

// WithChangeFunc installs a hook that observes committed changes.
func WithChangeFunc(fn ChangeFunc) Option {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// Coordinator is the single mutation gateway for sessions, rooms and
// password leases. Every operation runs inside one critical section and
// never blocks on I/O.
type Coordinator struct {
	mu         sync.RWMutex
	sessions   *sessionRegistry
	rooms      *roomRegistry
	leases     *leaseStore
	maxMembers int
	now        func() time.Time
	onChange   ChangeFunc
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions:   newSessionRegistry(),
		rooms:      newRoomRegistry(),
		leases:     newLeaseStore(DefaultPasswordTTL),
		maxMembers: DefaultMaxMembers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxMembers returns the configured room capacity.
func (c *Coordinator) MaxMembers() int {
	return c.maxMembers
}

// PasswordTTL returns the configured lease lifetime.
func (c *Coordinator) PasswordTTL() time.Duration {
	return c.leases.ttl
}

// Join places connID in roomID under username, creating the room if needed.
// If the connection is in a different room it leaves that room in the same
// step. On error no state changes.
func (c *Coordinator) Join(roomID, connID, username, password string) (JoinResult, error) {
	if strings.TrimSpace(roomID) == "" {
		return JoinResult{}, room.ErrRoomIDRequired()
	}
	if strings.TrimSpace(username) == "" {
		return JoinResult{}, room.ErrUsernameRequired()
	}

	c.mu.Lock()
	res, changes, err := c.join(roomID, connID, username, password)
	c.mu.Unlock()

	c.emit(changes)
	return res, err
}

func (c *Coordinator) join(roomID, connID, username, password string) (JoinResult, []Change, error) {
	now := c.now()
	state, exists := c.rooms.get(roomID)
	if exists {
		if state.password != "" && !passwordsMatch(state.password, password) {
			return JoinResult{}, nil, room.ErrInvalidPassword()
		}
		if state.nameTaken(username, connID) {
			return JoinResult{}, nil, room.ErrUsernameTaken(username)
		}
		if state.occupancy(connID) >= c.maxMembers {
			return JoinResult{}, nil, room.ErrRoomFull(c.maxMembers)
		}
	}

	var (
		changes []Change
		res     JoinResult
	)

	if current, ok := c.sessions.get(connID); ok && current.RoomID != roomID {
		dep, left := c.leave(current, now)
		res.Previous = &dep
		changes = append(changes, left...)
	}

	if !exists {
		state = &roomState{
			id:        roomID,
			createdAt: now,
			createdBy: connID,
		}
		if strings.TrimSpace(password) != "" {
			state.password = password
			c.leases.grant(roomID, password, now)
		}
		c.rooms.put(state)
		res.Created = true
		changes = append(changes, Change{
			Kind:        RoomCreated,
			RoomID:      roomID,
			ConnID:      connID,
			HasPassword: state.password != "",
			At:          now,
		})
	}

	if i := state.indexOf(connID); i >= 0 {
		state.members[i].Username = username
	} else {
		state.members = append(state.members, room.Member{ID: connID, Username: username})
	}
	c.sessions.put(room.Session{ConnID: connID, Username: username, RoomID: roomID})

	changes = append(changes, Change{
		Kind:     MemberJoined,
		RoomID:   roomID,
		ConnID:   connID,
		Username: username,
		Members:  len(state.members),
		At:       now,
	})

	res.Room = state.snapshot()
	return res, changes, nil
}

// Leave removes connID from its room. It is a no-op for unknown connections.
// The returned Departure holds the membership as it was before removal.
func (c *Coordinator) Leave(connID string) (room.Departure, bool) {
	c.mu.Lock()
	session, ok := c.sessions.get(connID)
	if !ok {
		c.mu.Unlock()
		return room.Departure{}, false
	}
	dep, changes := c.leave(session, c.now())
	c.mu.Unlock()

	c.emit(changes)
	return dep, true
}

// leave must be called with mu held.
func (c *Coordinator) leave(session room.Session, now time.Time) (room.Departure, []Change) {
	dep := room.Departure{
		RoomID:   session.RoomID,
		ConnID:   session.ConnID,
		Username: session.Username,
	}
	var changes []Change
	remaining := 0

	if state, ok := c.rooms.get(session.RoomID); ok {
		dep.Members = state.snapshot().Members
		state.remove(session.ConnID)
		remaining = len(state.members)
		if remaining == 0 {
			// The lease outlives the room until it expires.
			c.rooms.remove(state.id)
			dep.Emptied = true
		}
	}
	c.sessions.remove(session.ConnID)

	changes = append(changes, Change{
		Kind:     MemberLeft,
		RoomID:   session.RoomID,
		ConnID:   session.ConnID,
		Username: session.Username,
		Members:  remaining,
		At:       now,
	})
	if dep.Emptied {
		changes = append(changes, Change{
			Kind:    RoomDeleted,
			RoomID:  session.RoomID,
			Emptied: true,
			At:      now,
		})
	}
	return dep, changes
}

// Delete removes roomID on behalf of its creator, clearing the sessions of
// every member. The returned snapshot is the room as it was before deletion.
func (c *Coordinator) Delete(roomID, requesterID string) (room.Snapshot, error) {
	c.mu.Lock()
	state, ok := c.rooms.get(roomID)
	if !ok {
		c.mu.Unlock()
		return room.Snapshot{}, room.ErrRoomNotFound()
	}
	if state.createdBy != requesterID {
		c.mu.Unlock()
		return room.Snapshot{}, room.ErrNotCreator()
	}

	now := c.now()
	snap := state.snapshot()
	for _, m := range state.members {
		c.sessions.remove(m.ID)
	}
	c.rooms.remove(roomID)
	c.leases.revoke(roomID)
	c.mu.Unlock()

	c.emit([]Change{{
		Kind:      RoomDeleted,
		RoomID:    roomID,
		DeletedBy: requesterID,
		Evicted:   len(snap.Members),
		At:        now,
	}})
	return snap, nil
}

// Room returns a snapshot of a live room.
func (c *Coordinator) Room(roomID string) (room.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.rooms.get(roomID)
	if !ok {
		return room.Snapshot{}, false
	}
	return state.snapshot(), true
}

// Rooms returns snapshots of every live room.
func (c *Coordinator) Rooms() []room.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := c.rooms.all()
	out := make([]room.Snapshot, 0, len(all))
	for _, s := range all {
		out = append(out, s.snapshot())
	}
	return out
}

// Info returns the summary of roomID and whether the room is live.
// HasPassword is true for a live room with a password, or for a room that no
// longer exists but whose password lease has not expired.
func (c *Coordinator) Info(roomID string) (room.Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.rooms.get(roomID)
	return c.info(roomID, c.now()), exists
}

func (c *Coordinator) info(roomID string, now time.Time) room.Summary {
	sum := room.Summary{RoomID: roomID}
	if state, ok := c.rooms.get(roomID); ok {
		sum.UserCount = len(state.members)
		sum.HasPassword = state.password != ""
		return sum
	}
	sum.HasPassword = c.leases.active(roomID, now)
	return sum
}

// Summaries lists every live room.
func (c *Coordinator) Summaries() []room.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	all := c.rooms.all()
	out := make([]room.Summary, 0, len(all))
	for _, s := range all {
		out = append(out, c.info(s.id, now))
	}
	return out
}

// Session returns the session bound to connID.
func (c *Coordinator) Session(connID string) (room.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions.get(connID)
}

// Current returns the session bound to connID together with a snapshot of
// its room, both read under the same lock.
func (c *Coordinator) Current(connID string) (room.Session, room.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, ok := c.sessions.get(connID)
	if !ok {
		return room.Session{}, room.Snapshot{}, false
	}
	state, ok := c.rooms.get(session.RoomID)
	if !ok {
		return room.Session{}, room.Snapshot{}, false
	}
	return session, state.snapshot(), true
}

// Stats returns the current registry sizes.
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Rooms:    c.rooms.len(),
		Sessions: c.sessions.len(),
		Leases:   c.leases.len(),
	}
}

// SweepExpiredLeases removes every password lease older than the TTL and
// returns the affected room ids. Live rooms are never touched.
func (c *Coordinator) SweepExpiredLeases() []string {
	c.mu.Lock()
	now := c.now()
	swept := c.leases.sweep(now)
	c.mu.Unlock()

	changes := make([]Change, 0, len(swept))
	for _, id := range swept {
		changes = append(changes, Change{Kind: LeaseExpired, RoomID: id, At: now})
	}
	c.emit(changes)
	return swept
}

func (c *Coordinator) emit(changes []Change) {
	if c.onChange == nil || len(changes) == 0 {
		return
	}
	c.onChange(changes)
}

func passwordsMatch(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
