// Package engine implements the Game Engine (spec component C4), the
// Movement Validator (C6), and the reconnection/grace-period subsystem
// (C8). All public operations mutate state under a single engine-wide
// mutex, giving a total order on state-changing operations (spec.md §5).
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lab1702/gridkeep/internal/board"
	"github.com/lab1702/gridkeep/internal/engine/events"
)

// Player is one connected (or grace-period-disconnected) character.
type Player struct {
	PlayerID     uuid.UUID
	PlayerName   string
	ClientID     uuid.UUID
	HasClient    bool
	X, Y         int
	ConnectedAt  time.Time
	LastActivity time.Time
}

// Entity is a board occupant owned exclusively by the engine; cells hold
// only a weak EntityRef (board.EntityRef) pointing at it.
type Entity struct {
	EntityID   uuid.UUID
	EntityType string
	X, Y       int
	Solid      bool
	Glyph      board.Glyph
	ZOrder     int
	// Collectible entities are non-solid and award Score when a player's
	// move lands on their cell (SPEC_FULL.md §4 C4 supplement).
	Collectible bool
}

type disconnectedPlayer struct {
	player         Player
	disconnectedAt time.Time
}

// Game owns the board, players, entities, score and running flag. It is
// the exclusive owner of all Player and Entity state; a Player's ClientID
// is a lookup key into the connection registry, not a reference.
type Game struct {
	mu sync.RWMutex

	board *board.Board

	activePlayers       map[uuid.UUID]*Player
	disconnectedPlayers map[uuid.UUID]*disconnectedPlayer
	entities            map[uuid.UUID]*Entity

	score   int
	running bool

	bus *events.Bus

	// boardDesc/boardMeta are retained so reset() can rebuild the board
	// from the original description rather than merely clearing players.
	boardDesc *board.Description
	boardMeta *board.Meta
}
