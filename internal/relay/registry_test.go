package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegisterAndListFor(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "c1")
	r.Register("u1", "c2")
	r.Register("u2", "c3")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ListFor("u1"))
	assert.ElementsMatch(t, []string{"c3"}, r.ListFor("u2"))
	assert.Equal(t, 2, r.UserCount())
	assert.Equal(t, 3, r.ConnCount())
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "c1")
	r.Register("u1", "c1")

	assert.Equal(t, []string{"c1"}, r.ListFor("u1"))
	assert.Equal(t, 1, r.ConnCount())
}

func TestRegistry_UnregisterDropsEmptySets(t *testing.T) {
	r := NewRegistry()

	r.Register("u1", "c1")
	r.Register("u1", "c2")

	// Multi-device: removing one connection keeps the user present.
	r.Unregister("u1", "c1")
	assert.Equal(t, []string{"c2"}, r.ListFor("u1"))
	assert.Equal(t, 1, r.UserCount())

	// Removing the last connection drops the key entirely.
	r.Unregister("u1", "c2")
	assert.Nil(t, r.ListFor("u1"))
	assert.Equal(t, 0, r.UserCount())
	assert.Equal(t, 0, r.ConnCount())
}

func TestRegistry_UnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")

	assert.NotPanics(t, func() {
		r.Unregister("nobody", "c1")
		r.Unregister("u1", "unknown-conn")
		r.Unregister("u1", "unknown-conn") // duplicate disconnect
	})

	assert.Equal(t, []string{"c1"}, r.ListFor("u1"))
	assert.Equal(t, 1, r.UserCount())
}

func TestRegistry_InvariantsUnderInterleaving(t *testing.T) {
	r := NewRegistry()

	type op struct {
		unregister   bool
		user, connID string
	}
	ops := []op{
		{false, "u1", "c1"},
		{false, "u2", "c2"},
		{false, "u1", "c3"},
		{true, "u1", "c1"},
		{true, "u1", "c1"}, // duplicate
		{false, "u3", "c4"},
		{true, "u2", "c2"},
		{true, "u9", "cX"}, // unknown user
		{false, "u1", "c5"},
		{true, "u1", "c3"},
		{true, "u1", "c5"},
	}

	for _, o := range ops {
		if o.unregister {
			r.Unregister(o.user, o.connID)
		} else {
			r.Register(o.user, o.connID)
		}

		// No user key ever maps to an empty set, and no connection id
		// appears under two users at once.
		seen := map[string]string{}
		for user, set := range r.users {
			assert.NotEmpty(t, set, "user %s holds an empty set", user)
			for connID := range set {
				owner, dup := seen[connID]
				assert.False(t, dup, "conn %s under both %s and %s", connID, owner, user)
				seen[connID] = user
			}
		}
	}

	assert.Equal(t, 1, r.UserCount()) // only u3/c4 remains
	assert.Equal(t, []string{"c4"}, r.ListFor("u3"))
}
