// Package session keeps the in-memory links between open realtime
// connections and the users they authenticated as.
package session

import (
	"sort"
	"sync"
)

// ConnID identifies one physical connection. It is assigned by the transport.
type ConnID string

// Registry is a bidirectional index of connection <-> user links. A
// connection links to at most one user; a user may own many connections.
// Both views are mutated under one lock so they never disagree.
type Registry struct {
	mu     sync.Mutex
	byConn map[ConnID]string
	byUser map[string]map[ConnID]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[ConnID]string),
		byUser: make(map[string]map[ConnID]struct{}),
	}
}

// Link binds conn to userID, replacing any previous link of conn.
func (r *Registry) Link(conn ConnID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[conn]; ok {
		if prev == userID {
			return
		}
		r.removeLocked(conn, prev)
	}

	r.byConn[conn] = userID
	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[ConnID]struct{})
		r.byUser[userID] = conns
	}
	conns[conn] = struct{}{}
}

// Unlink removes the (conn, userID) link. It is a no-op when that link does not exist.
func (r *Registry) Unlink(conn ConnID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.byConn[conn]; !ok || cur != userID {
		return
	}
	r.removeLocked(conn, userID)
}

func (r *Registry) removeLocked(conn ConnID, userID string) {
	delete(r.byConn, conn)
	if conns, ok := r.byUser[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsOf returns a sorted snapshot of the connections linked to userID.
// The slice is owned by the caller.
func (r *Registry) ConnectionsOf(userID string) []ConnID {
	r.mu.Lock()
	conns := r.byUser[userID]
	out := make([]ConnID, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UserOf returns the user conn is linked to.
func (r *Registry) UserOf(conn ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn]
	return userID, ok
}

// Len returns the number of linked connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byConn)
}
