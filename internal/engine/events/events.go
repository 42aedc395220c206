// Package events implements the closed publish/subscribe bus (spec
// component C5): a fixed set of event kinds, each carrying an explicit
// scope discriminator (targeted at one connection, or broadcast to all).
package events

import "sync"

// Kind is a closed set of game event kinds.
type Kind string

const (
	Bump         Kind = "BUMP"
	PlayerJoined Kind = "PLAYER_JOINED"
	PlayerLeft   Kind = "PLAYER_LEFT"
)

// ScopeKind discriminates targeted delivery from broadcast delivery.
type ScopeKind int

const (
	ScopeBroadcast ScopeKind = iota
	ScopeTargeted
)

// Scope says who should receive an event: everyone, or the connection
// bound to one player.
type Scope struct {
	Kind     ScopeKind
	PlayerID string
}

// Targeted returns a scope addressed to the connection owning playerID.
func Targeted(playerID string) Scope {
	return Scope{Kind: ScopeTargeted, PlayerID: playerID}
}

// Broadcast returns a scope addressed to every active connection.
func Broadcast() Scope {
	return Scope{Kind: ScopeBroadcast}
}

// Event is a single published occurrence.
type Event struct {
	Kind    Kind
	Scope   Scope
	Payload interface{}
}

// BumpPayload is the payload of a Bump event (spec.md §4.4).
type BumpPayload struct {
	PlayerID    string
	Verdict     string // WALL | PLAYER | ENTITY | OUT_OF_BOUNDS
	AttemptedX  int
	AttemptedY  int
	CurrentX    int
	CurrentY    int
	OtherPlayer string
	OtherEntity string
	Timestamp   int64
}

// PlayerJoinedPayload is the payload of a PlayerJoined event.
type PlayerJoinedPayload struct {
	ClientID       string
	PlayerID       string
	PlayerName     string
	X              int
	Y              int
	IsReconnection bool
}

// PlayerLeftPayload is the payload of a PlayerLeft event.
type PlayerLeftPayload struct {
	PlayerID string
}

// Subscriber receives published events. It must not block: it should
// either format and enqueue a wire message, or update an internal counter,
// and return promptly (spec.md §4.5).
type Subscriber func(Event)

// Bus is an in-process, synchronous publish/subscribe dispatcher.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers s to receive every future published event.
func (b *Bus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Publish delivers e to every subscriber, in the calling goroutine.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s(e)
	}
}
