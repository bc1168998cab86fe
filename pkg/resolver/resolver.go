// Package resolver maintains the ephemeral player id → display name
// mapping recovered from intercepted session payloads. The mapping is
// never persisted; it is rebuilt as session data flows past.
package resolver

import "sync"

// User is a single player entry inside a session payload.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Session is one lobby session as reported by the host API. UsersAll
// lists every player attached to the session, spectators included.
type Session struct {
	UsersAll []User `json:"usersAll"`
}

// SessionList is the ordered session sequence of one host API response.
type SessionList []Session

// Resolver maps player ids to display names.
type Resolver struct {
	mu    sync.RWMutex
	names map[string]string
}

// New creates an empty resolver.
func New() *Resolver {
	return &Resolver{names: make(map[string]string)}
}

// Refresh writes every id → username pair from the session list,
// overwriting prior values in input order (last writer wins). Entries
// for ids absent from the payload are kept; there is no removal.
func (r *Resolver) Refresh(sessions SessionList) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range sessions {
		for _, user := range session.UsersAll {
			if user.ID == "" {
				continue
			}
			r.names[user.ID] = user.Username
		}
	}
}

// Resolve returns the display name for id, ok=false when unknown.
func (r *Resolver) Resolve(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[id]
	return name, ok
}

// Len returns the number of known ids.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
