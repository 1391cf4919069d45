package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeaseStore_Active(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newLeaseStore(30 * time.Minute)
	store.grant("r1", "pw", start)
	store.grant("r2", "", start)

	tests := []struct {
		name   string
		roomID string
		at     time.Duration
		want   bool
	}{
		{name: "fresh lease", roomID: "r1", at: 0, want: true},
		{name: "just before ttl", roomID: "r1", at: 29 * time.Minute, want: true},
		{name: "exactly ttl", roomID: "r1", at: 30 * time.Minute, want: true},
		{name: "past ttl", roomID: "r1", at: 30*time.Minute + time.Nanosecond, want: false},
		{name: "empty password", roomID: "r2", at: 0, want: false},
		{name: "unknown room", roomID: "r3", at: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.active(tt.roomID, start.Add(tt.at)))
		})
	}
}

func TestLeaseStore_Sweep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newLeaseStore(time.Minute)
	store.grant("b", "pw", start)
	store.grant("a", "pw", start)
	store.grant("c", "pw", start.Add(time.Minute))

	assert.Empty(t, store.sweep(start.Add(time.Minute)))
	assert.Equal(t, []string{"a", "b"}, store.sweep(start.Add(90*time.Second)))
	assert.Equal(t, 1, store.len())

	store.revoke("c")
	assert.Equal(t, 0, store.len())
}

func TestLeaseStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultPasswordTTL, newLeaseStore(0).ttl)
	assert.Equal(t, DefaultPasswordTTL, newLeaseStore(-time.Second).ttl)
	assert.Equal(t, time.Hour, newLeaseStore(time.Hour).ttl)
}
