package rooms

import (
	"sort"
	"time"
)

// DefaultPasswordTTL is how long a room is remembered as password protected.
const DefaultPasswordTTL = 30 * time.Minute

type passwordLease struct {
	password  string
	createdAt time.Time
}

// expired reports whether the lease is older than ttl. A lease exactly ttl
// old is still valid.
func (l passwordLease) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(l.createdAt) > ttl
}

// leaseStore tracks room passwords independently of room lifetime so that
// a protected room that just emptied still reports hasPassword.
// Guarded by the Coordinator.
type leaseStore struct {
	ttl    time.Duration
	leases map[string]passwordLease
}

func newLeaseStore(ttl time.Duration) *leaseStore {
	if ttl <= 0 {
		ttl = DefaultPasswordTTL
	}
	return &leaseStore{
		ttl:    ttl,
		leases: make(map[string]passwordLease),
	}
}

func (s *leaseStore) grant(roomID, password string, now time.Time) {
	s.leases[roomID] = passwordLease{password: password, createdAt: now}
}

func (s *leaseStore) revoke(roomID string) {
	delete(s.leases, roomID)
}

// active reports whether roomID holds an unexpired, non-empty lease.
func (s *leaseStore) active(roomID string, now time.Time) bool {
	l, ok := s.leases[roomID]
	return ok && l.password != "" && !l.expired(now, s.ttl)
}

// sweep drops every expired lease and returns the affected room ids, sorted.
func (s *leaseStore) sweep(now time.Time) []string {
	var swept []string
	for id, l := range s.leases {
		if l.expired(now, s.ttl) {
			delete(s.leases, id)
			swept = append(swept, id)
		}
	}
	sort.Strings(swept)
	return swept
}

func (s *leaseStore) len() int {
	return len(s.leases)
}
