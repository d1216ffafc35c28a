package relay

// Registry maps a user id to the set of live connection ids owned by that
// user. A user with two devices open has two entries in its set; a user with
// no live connections has no key at all.
//
// The registry does no I/O and is not safe for concurrent use — the hub
// goroutine is its only writer and reader.
type Registry struct {
	users map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]map[string]struct{}),
	}
}

// Register adds connID to userID's set, creating the set on first use.
// Registering the same pair twice leaves the set unchanged.
func (r *Registry) Register(userID, connID string) {
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[connID] = struct{}{}
}

// Unregister removes connID from userID's set. The key is dropped as soon as
// the set becomes empty, so the registry never holds empty sets. Unknown
// users or connections are a no-op.
func (r *Registry) Unregister(userID, connID string) {
	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// ListFor returns the connection ids currently registered for userID.
func (r *Registry) ListFor(userID string) []string {
	set, ok := r.users[userID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// UserCount returns the number of users with at least one live connection.
func (r *Registry) UserCount() int {
	return len(r.users)
}

// ConnCount returns the total number of registered connections.
func (r *Registry) ConnCount() int {
	n := 0
	for _, set := range r.users {
		n += len(set)
	}
	return n
}
