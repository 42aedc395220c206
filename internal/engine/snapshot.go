package engine

import "github.com/google/uuid"

// Snapshot is a read-only copy of Game state sufficient to build a
// STATE_UPDATE payload (spec.md §4.4).
type Snapshot struct {
	Width   int
	Height  int
	Grid    [][]rune
	Players []PlayerSnapshot
	Entities []EntitySnapshot
	Score   int
	Running bool
}

// PlayerSnapshot is the per-player projection of a Snapshot.
type PlayerSnapshot struct {
	PlayerID   uuid.UUID
	PlayerName string
	ClientID   uuid.UUID
	X, Y       int
}

// EntitySnapshot is the per-entity projection of a Snapshot.
type EntitySnapshot struct {
	EntityID   uuid.UUID
	EntityType string
	X, Y       int
	Solid      bool
	Glyph      rune
	Color      *uint32
	ZOrder     int
}

// Snapshot returns a consistent point-in-time copy of the game state.
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Snapshot{
		Width:   g.board.Width,
		Height:  g.board.Height,
		Grid:    g.board.SerializeGrid(),
		Score:   g.score,
		Running: g.running,
	}

	for _, p := range g.activePlayers {
		s.Players = append(s.Players, PlayerSnapshot{
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			ClientID:   p.ClientID,
			X:          p.X,
			Y:          p.Y,
		})
	}

	for _, e := range g.entities {
		s.Entities = append(s.Entities, EntitySnapshot{
			EntityID:   e.EntityID,
			EntityType: e.EntityType,
			X:          e.X,
			Y:          e.Y,
			Solid:      e.Solid,
			Glyph:      e.Glyph.Char,
			Color:      e.Glyph.Color,
			ZOrder:     e.ZOrder,
		})
	}

	return s
}

// PlayerByID returns a snapshot of one active player, or false if playerID
// is not active.
func (g *Game) PlayerByID(playerID uuid.UUID) (PlayerSnapshot, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.activePlayers[playerID]
	if !ok {
		return PlayerSnapshot{}, false
	}
	return PlayerSnapshot{
		PlayerID:   p.PlayerID,
		PlayerName: p.PlayerName,
		ClientID:   p.ClientID,
		X:          p.X,
		Y:          p.Y,
	}, true
}

// SetPlayerName updates a player's display name.
func (g *Game) SetPlayerName(playerID uuid.UUID, name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.activePlayers[playerID]
	if !ok {
		return false
	}
	p.PlayerName = name
	return true
}
