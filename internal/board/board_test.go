package board

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushEntityConflict(t *testing.T) {
	b := New(3, 3)
	a := uuid.New()
	c := uuid.New()

	require.NoError(t, b.PushEntity(a, 1, 1, true))
	err := b.PushEntity(c, 1, 1, true)
	assert.ErrorIs(t, err, ErrEntityConflict)

	// a non-solid entity may still stack on the same cell.
	require.NoError(t, b.PushEntity(c, 1, 1, false))
	refs := b.EntitiesAt(1, 1)
	assert.Len(t, refs, 2)
}

func TestRemoveEntityIdempotent(t *testing.T) {
	b := New(2, 2)
	id := uuid.New()
	require.NoError(t, b.PushEntity(id, 0, 0, true))
	b.RemoveEntity(id, 0, 0)
	b.RemoveEntity(id, 0, 0) // idempotent on absence
	_, ok := b.SolidEntityAt(0, 0)
	assert.False(t, ok)
}

func TestSerializeGridExcludesEntities(t *testing.T) {
	b := New(2, 2)
	require.NoError(t, b.SetBaseChar(0, 0, WallChar))
	require.NoError(t, b.PushEntity(uuid.New(), 1, 1, true))

	grid := b.SerializeGrid()
	assert.Equal(t, WallChar, grid[0][0])
	assert.Equal(t, EmptyChar, grid[1][1]) // entity must not leak into the grid
}

func TestOutOfBoundsIsWall(t *testing.T) {
	b := New(2, 2)
	assert.True(t, b.IsWall(-1, 0))
	assert.True(t, b.IsWall(2, 0))
	assert.False(t, b.IsWall(0, 0))
}

func TestBuildAndEncodeRoundTrip(t *testing.T) {
	desc := &Description{
		Width:  3,
		Height: 2,
		Cells: []RunEntry{
			{Entity: 1, Repeat: 3},
			{Entity: 0, Repeat: 3},
		},
	}
	b, err := Build(desc, nil)
	require.NoError(t, err)
	assert.Equal(t, WallChar, b.GetBaseChar(0, 0))
	assert.Equal(t, WallChar, b.GetBaseChar(2, 0))
	assert.Equal(t, EmptyChar, b.GetBaseChar(0, 1))

	reEncoded := Encode(b)
	assert.Equal(t, desc.Cells, reEncoded.Cells)
}

func TestValidateDims(t *testing.T) {
	allowed := DefaultAllowedDims()
	assert.NoError(t, ValidateDims(60, 25, allowed))
	assert.Error(t, ValidateDims(61, 25, allowed))
}

func TestParseDescriptionRejectsMalformed(t *testing.T) {
	_, err := ParseDescription([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseDescription([]byte(`{"width":0,"height":5,"cells":[]}`))
	assert.Error(t, err)
}
