// Package connection implements the Connection Manager (spec component
// C3): a registry mapping clientId -> Connection, with a secondary
// disconnected registry governed by the grace period.
package connection

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lab1702/gridkeep/internal/apperr"
)

// Sink is the minimal transport capability the registry needs: push bytes
// to the client. The real implementation wraps a *websocket.Conn; tests use
// a fake.
type Sink interface {
	Send(messageBytes []byte) error
}

// Connection is one client's transport handle plus the identity it has
// bound, if any.
type Connection struct {
	ClientID     uuid.UUID
	Sink         Sink
	ConnectedAt  time.Time
	LastActivity time.Time

	PlayerID   uuid.UUID
	HasPlayer  bool
	PlayerName string
}

type disconnectedEntry struct {
	conn           Connection
	disconnectedAt time.Time
}

// Registry holds the active/disconnected connection maps behind its own
// mutex (spec.md §5 "Shared-resource policy").
type Registry struct {
	mu           sync.RWMutex
	active       map[uuid.UUID]*Connection
	disconnected map[uuid.UUID]*disconnectedEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:       make(map[uuid.UUID]*Connection),
		disconnected: make(map[uuid.UUID]*disconnectedEntry),
	}
}

// Register adds a freshly accepted transport to the active set, returning
// its newly minted clientId.
func (r *Registry) Register(sink Sink) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	now := time.Now()
	r.active[id] = &Connection{
		ClientID:     id,
		Sink:         sink,
		ConnectedAt:  now,
		LastActivity: now,
	}
	return id
}

// BindPlayer associates a playerId/playerName with an active connection.
func (r *Registry) BindPlayer(clientID, playerID uuid.UUID, playerName string) *apperr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.active[clientID]
	if !ok {
		return apperr.New(apperr.UnknownClient, "client is not active").
			WithContext(apperr.Context{Action: "bindPlayer"})
	}
	c.PlayerID = playerID
	c.HasPlayer = true
	c.PlayerName = playerName
	return nil
}

// Touch updates a connection's LastActivity timestamp.
func (r *Registry) Touch(clientID uuid.UUID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.active[clientID]; ok {
		c.LastActivity = now
	}
}

// MarkDisconnected moves clientID from active to disconnected. Idempotent.
func (r *Registry) MarkDisconnected(clientID uuid.UUID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.active[clientID]
	if !ok {
		return
	}
	delete(r.active, clientID)
	r.disconnected[clientID] = &disconnectedEntry{conn: *c, disconnectedAt: now}
}

// Reclaim promotes a disconnected connection back to active, returning it.
// Used only when reconnection reuses the same clientId; the typical flow
// instead reuses playerId with a fresh clientId via BindPlayer on a new
// Register call.
func (r *Registry) Reclaim(clientID uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.disconnected[clientID]
	if !ok {
		return nil, false
	}
	delete(r.disconnected, clientID)
	c := entry.conn
	r.active[clientID] = &c
	return &c, true
}

// Purge removes disconnected entries older than graceMs.
func (r *Registry) Purge(now time.Time, graceMs time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.disconnected {
		if now.Sub(entry.disconnectedAt) > graceMs {
			delete(r.disconnected, id)
		}
	}
}

// Broadcast sends messageBytes to every active connection. Send failures
// do not abort the broadcast and are not logged; the clientIds whose send
// failed are returned, and the server's callers discard that list. The
// transport's own close triggers MarkDisconnected via the server loop.
func (r *Registry) Broadcast(messageBytes []byte) []uuid.UUID {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.active))
	for _, c := range r.active {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	var failed []uuid.UUID
	for _, c := range conns {
		if err := c.Sink.Send(messageBytes); err != nil {
			failed = append(failed, c.ClientID)
		}
	}
	return failed
}

// SendTo sends messageBytes to one active connection, by clientId.
func (r *Registry) SendTo(clientID uuid.UUID, messageBytes []byte) error {
	r.mu.RLock()
	c, ok := r.active[clientID]
	r.mu.RUnlock()
	if !ok {
		return apperr.New(apperr.UnknownClient, "client is not active")
	}
	return c.Sink.Send(messageBytes)
}

// Get returns the active connection for clientID, if any.
func (r *Registry) Get(clientID uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[clientID]
	return c, ok
}

// FindByPlayerID returns the active connection bound to playerID, if any —
// used to resolve a Bump event's targeted scope to a clientId.
func (r *Registry) FindByPlayerID(playerID uuid.UUID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.active {
		if c.HasPlayer && c.PlayerID == playerID {
			return c, true
		}
	}
	return nil, false
}

// ActiveCount returns the number of active connections.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// DisconnectedCount returns the number of disconnected connections.
func (r *Registry) DisconnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.disconnected)
}

// ActiveClientIDs returns a snapshot of every active clientId.
func (r *Registry) ActiveClientIDs() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	return ids
}
