// Package board implements the 2D grid model (spec component C1): a
// width×height array of cells, each holding a base character and an
// ordered entity queue with a single-solid-entity invariant.
package board

import (
	"fmt"

	"github.com/google/uuid"
)

// Base character sentinels (server-defined, spec.md §6.1).
const (
	EmptyChar rune = ' '
	WallChar  rune = '#'
)

// Glyph is an immutable visual tag: a character plus an optional 24-bit
// color (nil means "use the default color for this context").
type Glyph struct {
	Char  rune
	Color *uint32
}

// EntityRef is a weak reference held by a cell — a lookup key, never a
// pointer into the entity queue, so removal never depends on internal
// queue representation.
type EntityRef struct {
	EntityID uuid.UUID
	Solid    bool
}

// Cell holds a base character and an ordered entity queue. At most one
// entry in the queue may be solid.
type Cell struct {
	BaseChar    rune
	entityQueue []EntityRef
}

// Board is a fixed-size grid of cells. Dimensions never change after
// construction.
type Board struct {
	Width  int
	Height int
	cells  []Cell
}

// New builds a Board of the given dimensions, all cells initialized to
// EmptyChar.
func New(width, height int) *Board {
	cells := make([]Cell, width*height)
	for i := range cells {
		cells[i].BaseChar = EmptyChar
	}
	return &Board{Width: width, Height: height, cells: cells}
}

func (b *Board) idx(x, y int) (int, bool) {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return 0, false
	}
	return y*b.Width + x, true
}

// InBounds reports whether (x,y) is a valid cell coordinate.
func (b *Board) InBounds(x, y int) bool {
	_, ok := b.idx(x, y)
	return ok
}

// SetBaseChar sets the base character of (x,y). Used only during board
// construction from a description (§6.1); the board is otherwise immutable.
func (b *Board) SetBaseChar(x, y int, ch rune) error {
	i, ok := b.idx(x, y)
	if !ok {
		return fmt.Errorf("board: (%d,%d) out of bounds", x, y)
	}
	b.cells[i].BaseChar = ch
	return nil
}

// GetBaseChar returns the base character at (x,y), or the wall sentinel if
// out of bounds (a wall-shaped boundary keeps callers from special-casing
// edges).
func (b *Board) GetBaseChar(x, y int) rune {
	i, ok := b.idx(x, y)
	if !ok {
		return WallChar
	}
	return b.cells[i].BaseChar
}

// IsWall reports whether (x,y) is a wall cell (true for out-of-bounds too).
func (b *Board) IsWall(x, y int) bool {
	return b.GetBaseChar(x, y) == WallChar
}

// SolidEntityAt returns the solid entity occupying (x,y), if any.
func (b *Board) SolidEntityAt(x, y int) (uuid.UUID, bool) {
	i, ok := b.idx(x, y)
	if !ok {
		return uuid.Nil, false
	}
	for _, ref := range b.cells[i].entityQueue {
		if ref.Solid {
			return ref.EntityID, true
		}
	}
	return uuid.Nil, false
}

// EntitiesAt returns a copy of the entity queue at (x,y) in insertion order.
func (b *Board) EntitiesAt(x, y int) []EntityRef {
	i, ok := b.idx(x, y)
	if !ok {
		return nil
	}
	out := make([]EntityRef, len(b.cells[i].entityQueue))
	copy(out, b.cells[i].entityQueue)
	return out
}

// PushEntity appends entityID to the queue at (x,y). It fails with
// ErrEntityConflict when solid is true and a solid entity already occupies
// the cell.
func (b *Board) PushEntity(entityID uuid.UUID, x, y int, solid bool) error {
	i, ok := b.idx(x, y)
	if !ok {
		return fmt.Errorf("board: (%d,%d) out of bounds", x, y)
	}
	if solid {
		if _, occupied := b.SolidEntityAt(x, y); occupied {
			return ErrEntityConflict
		}
	}
	b.cells[i].entityQueue = append(b.cells[i].entityQueue, EntityRef{EntityID: entityID, Solid: solid})
	return nil
}

// RemoveEntity removes entityID from the queue at (x,y). Idempotent on
// absence.
func (b *Board) RemoveEntity(entityID uuid.UUID, x, y int) {
	i, ok := b.idx(x, y)
	if !ok {
		return
	}
	q := b.cells[i].entityQueue
	for j, ref := range q {
		if ref.EntityID == entityID {
			b.cells[i].entityQueue = append(q[:j], q[j+1:]...)
			return
		}
	}
}

// SerializeGrid produces a height×width matrix of base characters only —
// no entities, no players.
func (b *Board) SerializeGrid() [][]rune {
	grid := make([][]rune, b.Height)
	for y := 0; y < b.Height; y++ {
		row := make([]rune, b.Width)
		for x := 0; x < b.Width; x++ {
			row[x] = b.cells[y*b.Width+x].BaseChar
		}
		grid[y] = row
	}
	return grid
}

// ErrEntityConflict is returned by PushEntity when a solid entity already
// occupies the target cell.
var ErrEntityConflict = fmt.Errorf("board: cell already has a solid entity")
