package engine

import "github.com/google/uuid"

// Verdict is the outcome of validating a proposed move (spec component C6).
type Verdict struct {
	Kind        VerdictKind
	OtherPlayer uuid.UUID
	OtherEntity uuid.UUID
}

// VerdictKind enumerates the possible movement outcomes, evaluated in the
// fixed order bounds -> wall -> solid-entity -> other-active-player.
type VerdictKind string

const (
	VerdictOK          VerdictKind = "OK"
	VerdictOutOfBounds VerdictKind = "OUT_OF_BOUNDS"
	VerdictWall        VerdictKind = "WALL"
	VerdictEntity      VerdictKind = "ENTITY"
	VerdictPlayer      VerdictKind = "PLAYER"
)

// validateMove is a pure function: given the board, entities, active
// players, and a proposed destination, it decides the verdict. The
// player's own current cell is excluded from the other-active-player
// check (spec.md §4.6).
func (g *Game) validateMove(playerID uuid.UUID, nx, ny int) Verdict {
	b := g.board

	if !b.InBounds(nx, ny) {
		return Verdict{Kind: VerdictOutOfBounds}
	}
	if b.IsWall(nx, ny) {
		return Verdict{Kind: VerdictWall}
	}
	if entityID, solid := b.SolidEntityAt(nx, ny); solid {
		return Verdict{Kind: VerdictEntity, OtherEntity: entityID}
	}
	for id, p := range g.activePlayers {
		if id == playerID {
			continue
		}
		if p.X == nx && p.Y == ny {
			return Verdict{Kind: VerdictPlayer, OtherPlayer: id}
		}
	}
	return Verdict{Kind: VerdictOK}
}
