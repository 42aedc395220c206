package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/lab1702/gridkeep/internal/board"
	"github.com/lab1702/gridkeep/internal/engine/events"
)

func newTestGame(t *testing.T, w, h int) *Game {
	t.Helper()
	b := board.New(w, h)
	return New(b, nil, nil, events.NewBus())
}

func TestAddPlayerAtHint(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	p, err := g.AddPlayer(pid, "A", uuid.New(), 2, 2)
	require.Nil(t, err)
	assert.Equal(t, 2, p.X)
	assert.Equal(t, 2, p.Y)
}

func TestAddPlayerSpiralsWhenHintOccupied(t *testing.T) {
	g := newTestGame(t, 5, 5)
	_, err := g.AddPlayer(uuid.New(), "A", uuid.New(), 2, 2)
	require.Nil(t, err)

	p2, err := g.AddPlayer(uuid.New(), "B", uuid.New(), 2, 2)
	require.Nil(t, err)
	assert.False(t, p2.X == 2 && p2.Y == 2)
}

func TestAddPlayerNoSpawnCell(t *testing.T) {
	g := newTestGame(t, 1, 1)
	_, err := g.AddPlayer(uuid.New(), "A", uuid.New(), 0, 0)
	require.Nil(t, err)

	_, err = g.AddPlayer(uuid.New(), "B", uuid.New(), 0, 0)
	require.NotNil(t, err)
	assert.Equal(t, apperr.NoSpawnCell, err.Code)
}

func TestMoveInvalidDelta(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 2, 2)
	require.Nil(t, err)

	_, err2 := g.MovePlayer(pid, 0, 0)
	require.NotNil(t, err2)
	assert.Equal(t, apperr.InvalidMove, err2.Code)

	_, err2 = g.MovePlayer(pid, 2, 0)
	require.NotNil(t, err2)
	assert.Equal(t, apperr.InvalidMove, err2.Code)
}

func TestMoveOutOfBounds(t *testing.T) {
	g := newTestGame(t, 3, 3)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 0, 0)
	require.Nil(t, err)

	v, err2 := g.MovePlayer(pid, -1, 0)
	require.Nil(t, err2)
	assert.Equal(t, VerdictOutOfBounds, v.Kind)
}

func TestMoveBlockedByWall(t *testing.T) {
	g := newTestGame(t, 3, 3)
	require.NoError(t, g.board.SetBaseChar(0, 1, board.WallChar))
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	v, err2 := g.MovePlayer(pid, -1, 0)
	require.Nil(t, err2)
	assert.Equal(t, VerdictWall, v.Kind)
}

func TestMoveBlockedByPlayer(t *testing.T) {
	g := newTestGame(t, 5, 5)
	p1 := uuid.New()
	p2 := uuid.New()

	_, err := g.AddPlayer(p1, "A", uuid.New(), 1, 1)
	require.Nil(t, err)
	_, err = g.AddPlayer(p2, "B", uuid.New(), 2, 1)
	require.Nil(t, err)

	v, err2 := g.MovePlayer(p1, 1, 0)
	require.Nil(t, err2)
	assert.Equal(t, VerdictPlayer, v.Kind)
	assert.Equal(t, p2, v.OtherPlayer)
}

func TestMoveSuccessUpdatesPosition(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	v, err2 := g.MovePlayer(pid, 1, 0)
	require.Nil(t, err2)
	assert.Equal(t, VerdictOK, v.Kind)

	snap, ok := g.PlayerByID(pid)
	require.True(t, ok)
	assert.Equal(t, 2, snap.X)
	assert.Equal(t, 1, snap.Y)
}

func TestDisconnectRestoreWithinGrace(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	now := time.Now()
	require.Nil(t, g.RemovePlayer(pid, RemoveDisconnect, now))

	restored, err2 := g.RestorePlayer(pid, uuid.New(), now.Add(20*time.Second), 60*time.Second)
	require.Nil(t, err2)
	assert.Equal(t, 1, restored.X)
	assert.Equal(t, 1, restored.Y)
}

func TestReconnectAfterGraceTreatedAsExpired(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	now := time.Now()
	require.Nil(t, g.RemovePlayer(pid, RemoveDisconnect, now))

	_, err2 := g.RestorePlayer(pid, uuid.New(), now.Add(61*time.Second), 60*time.Second)
	require.NotNil(t, err2)
	assert.Equal(t, apperr.GraceExpired, err2.Code)
}

func TestRestoreSpiralsWhenPriorCellOccupied(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	now := time.Now()
	require.Nil(t, g.RemovePlayer(pid, RemoveDisconnect, now))

	other := uuid.New()
	_, err = g.AddPlayer(other, "B", uuid.New(), 1, 1)
	require.Nil(t, err)

	restored, err2 := g.RestorePlayer(pid, uuid.New(), now.Add(time.Second), 60*time.Second)
	require.Nil(t, err2)
	assert.False(t, restored.X == 1 && restored.Y == 1)
}

func TestPurgeExpiredIsIdempotent(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	now := time.Now()
	require.Nil(t, g.RemovePlayer(pid, RemoveDisconnect, now))

	g.PurgeExpired(now.Add(61*time.Second), 60*time.Second)
	g.PurgeExpired(now.Add(61*time.Second), 60*time.Second) // idempotent

	_, err2 := g.RestorePlayer(pid, uuid.New(), now.Add(61*time.Second), 60*time.Second)
	require.NotNil(t, err2)
	assert.Equal(t, apperr.NoSuchPlayer, err2.Code)
}

func TestSpawnEntityConflict(t *testing.T) {
	g := newTestGame(t, 5, 5)
	_, err := g.SpawnEntity("rock", 2, 2, true, board.Glyph{Char: 'R'}, 1, false)
	require.Nil(t, err)

	_, err2 := g.SpawnEntity("rock2", 2, 2, true, board.Glyph{Char: 'R'}, 1, false)
	require.NotNil(t, err2)
	assert.Equal(t, apperr.EntityConflict, err2.Code)
}

func TestMoveCollectsCollectibleAndScores(t *testing.T) {
	g := newTestGame(t, 5, 5)
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	_, err = g.SpawnEntity("coin", 2, 1, false, board.Glyph{Char: '$'}, 0, true)
	require.Nil(t, err)

	v, err2 := g.MovePlayer(pid, 1, 0)
	require.Nil(t, err2)
	assert.Equal(t, VerdictOK, v.Kind)

	snap := g.Snapshot()
	assert.Equal(t, 1, snap.Score)
	assert.Len(t, snap.Entities, 0)
}

func TestBumpEventEmittedOnRejection(t *testing.T) {
	g := newTestGame(t, 3, 3)
	require.NoError(t, g.board.SetBaseChar(2, 1, board.WallChar))
	pid := uuid.New()
	_, err := g.AddPlayer(pid, "A", uuid.New(), 1, 1)
	require.Nil(t, err)

	var captured *events.Event
	g.Bus().Subscribe(func(e events.Event) {
		if e.Kind == events.Bump {
			ev := e
			captured = &ev
		}
	})

	_, err2 := g.MovePlayer(pid, 1, 0)
	require.Nil(t, err2)
	require.NotNil(t, captured)
	assert.Equal(t, events.ScopeTargeted, captured.Scope.Kind)
	assert.Equal(t, pid.String(), captured.Scope.PlayerID)
}

func TestResetClearsStateAndRebuildsBoard(t *testing.T) {
	desc := &board.Description{Width: 2, Height: 2, Cells: []board.RunEntry{{Entity: 1, Repeat: 4}}}
	b, err := board.Build(desc, nil)
	require.NoError(t, err)
	g := New(b, desc, nil, events.NewBus())

	pid := uuid.New()
	_, aerr := g.AddPlayer(pid, "A", uuid.New(), 0, 0)
	// Board is solid walls everywhere, so AddPlayer must fail with NoSpawnCell.
	require.NotNil(t, aerr)
	assert.Equal(t, apperr.NoSpawnCell, aerr.Code)

	require.Nil(t, g.Reset())
	snap := g.Snapshot()
	assert.Equal(t, 0, snap.Score)
	assert.True(t, snap.Running)
	assert.Len(t, snap.Players, 0)
}
