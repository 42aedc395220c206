package engine

import "github.com/google/uuid"

// spiralOffsets enumerates (dx,dy) offsets from a hint cell in outward
// square-spiral order: right, down, left×2, up×2, right×3, ... This visits
// cells in increasing Chebyshev-distance rings, so two implementations
// given the same hint and board state always choose the same free cell
// (spec.md §4.4 "Spiral search", Open Question resolved in SPEC_FULL.md §6:
// ties broken by Chebyshev distance, the natural metric of a square spiral).
func spiralOffsets(maxRing int) []struct{ dx, dy int } {
	offsets := []struct{ dx, dy int }{{0, 0}}

	// Directions cycle right, down, left, up; run lengths are 1,1,2,2,3,3,...
	dirs := [4]struct{ dx, dy int }{
		{1, 0},  // right
		{0, 1},  // down
		{-1, 0}, // left
		{0, -1}, // up
	}

	x, y := 0, 0
	dirIdx := 0
	runLength := 1
	stepsTakenInPair := 0

	for len(offsets) < (2*maxRing+1)*(2*maxRing+1) {
		for step := 0; step < runLength; step++ {
			x += dirs[dirIdx].dx
			y += dirs[dirIdx].dy
			offsets = append(offsets, struct{ dx, dy int }{x, y})
		}
		dirIdx = (dirIdx + 1) % 4
		stepsTakenInPair++
		if stepsTakenInPair == 2 {
			stepsTakenInPair = 0
			runLength++
		}
	}

	return offsets
}

// findFreeCell performs a deterministic outward spiral search from
// (hintX,hintY), returning the first cell that is in-bounds, not a wall,
// holds no solid entity, and holds no active player. excludePlayer
// lets callers exclude a specific player (e.g. the player being restored)
// from the active-player check.
func (g *Game) findFreeCell(hintX, hintY int, excludePlayer uuid.UUID) (int, int, bool) {
	maxRing := g.board.Width
	if g.board.Height > maxRing {
		maxRing = g.board.Height
	}

	for _, off := range spiralOffsets(maxRing) {
		x, y := hintX+off.dx, hintY+off.dy
		if !g.board.InBounds(x, y) {
			continue
		}
		if g.board.IsWall(x, y) {
			continue
		}
		if _, solid := g.board.SolidEntityAt(x, y); solid {
			continue
		}
		if g.playerAt(x, y, excludePlayer) {
			continue
		}
		return x, y, true
	}
	return 0, 0, false
}

// playerAt reports whether some active player other than exclude occupies
// (x,y).
func (g *Game) playerAt(x, y int, exclude uuid.UUID) bool {
	for id, p := range g.activePlayers {
		if id == exclude {
			continue
		}
		if p.X == x && p.Y == y {
			return true
		}
	}
	return false
}
