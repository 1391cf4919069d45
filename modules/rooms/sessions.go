package rooms

import "github.com/example/meetus-signal/domain/room"

// sessionRegistry maps a live connection id to its current room and name.
// It is not safe for concurrent use; the Coordinator guards it.
type sessionRegistry struct {
	sessions map[string]room.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]room.Session)}
}

func (r *sessionRegistry) get(connID string) (room.Session, bool) {
	s, ok := r.sessions[connID]
	return s, ok
}

func (r *sessionRegistry) put(s room.Session) {
	r.sessions[s.ConnID] = s
}

func (r *sessionRegistry) remove(connID string) {
	delete(r.sessions, connID)
}

func (r *sessionRegistry) len() int {
	return len(r.sessions)
}
