package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/lab1702/gridkeep/internal/board"
	"github.com/lab1702/gridkeep/internal/engine/events"
)

// RemoveReason distinguishes a transient disconnect (player moves to the
// disconnected registry, eligible for restore) from a permanent quit.
type RemoveReason string

const (
	RemoveDisconnect RemoveReason = "disconnect"
	RemoveQuit       RemoveReason = "quit"
)

// New constructs a Game from a board description, ready to run.
func New(b *board.Board, desc *board.Description, meta *board.Meta, bus *events.Bus) *Game {
	return &Game{
		board:               b,
		activePlayers:       make(map[uuid.UUID]*Player),
		disconnectedPlayers: make(map[uuid.UUID]*disconnectedPlayer),
		entities:            make(map[uuid.UUID]*Entity),
		running:             true,
		bus:                 bus,
		boardDesc:           desc,
		boardMeta:           meta,
	}
}

// Bus returns the game's event bus.
func (g *Game) Bus() *events.Bus { return g.bus }

func nowMillis() int64 { return time.Now().UnixMilli() }

// AddPlayer places a new player at (hintX,hintY) or the nearest free cell
// found by spiral search, and emits PlayerJoined.
func (g *Game) AddPlayer(playerID uuid.UUID, playerName string, clientID uuid.UUID, hintX, hintY int) (*Player, *apperr.Error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.activePlayers[playerID]; ok {
		return nil, apperr.New(apperr.PlayerAddFailed, "player already active").
			WithContext(apperr.Context{Action: "addPlayer", PlayerID: playerID.String()})
	}
	if _, ok := g.disconnectedPlayers[playerID]; ok {
		return nil, apperr.New(apperr.PlayerAddFailed, "player already disconnected, use restore").
			WithContext(apperr.Context{Action: "addPlayer", PlayerID: playerID.String()})
	}

	x, y, ok := g.findFreeCell(hintX, hintY, uuid.Nil)
	if !ok {
		return nil, apperr.New(apperr.NoSpawnCell, "no free cell on board").
			WithContext(apperr.Context{Action: "addPlayer", PlayerID: playerID.String()})
	}

	now := time.Now()
	p := &Player{
		PlayerID:     playerID,
		PlayerName:   playerName,
		ClientID:     clientID,
		HasClient:    true,
		X:            x,
		Y:            y,
		ConnectedAt:  now,
		LastActivity: now,
	}
	g.activePlayers[playerID] = p

	g.bus.Publish(events.Event{
		Kind:  events.PlayerJoined,
		Scope: events.Broadcast(),
		Payload: events.PlayerJoinedPayload{
			ClientID:       clientID.String(),
			PlayerID:       playerID.String(),
			PlayerName:     playerName,
			X:              x,
			Y:              y,
			IsReconnection: false,
		},
	})

	return p, nil
}

// RestorePlayer moves a disconnected player back to active, reusing its
// prior position if still free, else spiral-searching for a conflict-free
// cell. Fails with GraceExpired if the grace window has passed (the caller
// is expected to convert that into "add as new").
func (g *Game) RestorePlayer(playerID uuid.UUID, newClientID uuid.UUID, now time.Time, graceMs time.Duration) (*Player, *apperr.Error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dp, ok := g.disconnectedPlayers[playerID]
	if !ok {
		return nil, apperr.New(apperr.NoSuchPlayer, "no such disconnected player").
			WithContext(apperr.Context{Action: "restorePlayer", PlayerID: playerID.String()})
	}
	if now.Sub(dp.disconnectedAt) > graceMs {
		return nil, apperr.New(apperr.GraceExpired, "grace period expired").
			WithContext(apperr.Context{Action: "restorePlayer", PlayerID: playerID.String()})
	}

	p := dp.player
	x, y := p.X, p.Y
	if _, solid := g.board.SolidEntityAt(x, y); solid || g.playerAt(x, y, playerID) || g.board.IsWall(x, y) {
		nx, ny, found := g.findFreeCell(x, y, playerID)
		if !found {
			return nil, apperr.New(apperr.NoSpawnCell, "no free cell on board").
				WithContext(apperr.Context{Action: "restorePlayer", PlayerID: playerID.String()})
		}
		x, y = nx, ny
	}

	p.X, p.Y = x, y
	p.ClientID = newClientID
	p.HasClient = true
	p.LastActivity = now

	delete(g.disconnectedPlayers, playerID)
	g.activePlayers[playerID] = &p

	g.bus.Publish(events.Event{
		Kind:  events.PlayerJoined,
		Scope: events.Broadcast(),
		Payload: events.PlayerJoinedPayload{
			ClientID:       newClientID.String(),
			PlayerID:       playerID.String(),
			PlayerName:     p.PlayerName,
			X:              x,
			Y:              y,
			IsReconnection: true,
		},
	})

	return &p, nil
}

// RemovePlayer removes an active player. For RemoveDisconnect it moves the
// player to the disconnected registry (restorable within grace); for
// RemoveQuit it is a permanent removal.
func (g *Game) RemovePlayer(playerID uuid.UUID, reason RemoveReason, now time.Time) *apperr.Error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.activePlayers[playerID]
	if !ok {
		return apperr.New(apperr.NoSuchPlayer, "no such active player").
			WithContext(apperr.Context{Action: "removePlayer", PlayerID: playerID.String()})
	}

	delete(g.activePlayers, playerID)

	if reason == RemoveDisconnect {
		g.disconnectedPlayers[playerID] = &disconnectedPlayer{player: *p, disconnectedAt: now}
	}

	g.bus.Publish(events.Event{
		Kind:  events.PlayerLeft,
		Scope: events.Broadcast(),
		Payload: events.PlayerLeftPayload{
			PlayerID: playerID.String(),
		},
	})

	return nil
}

// MovePlayer validates and, if valid, applies a one-step move. On
// rejection it emits a targeted Bump event and returns the rejecting
// verdict; it never mutates state on rejection.
func (g *Game) MovePlayer(playerID uuid.UUID, dx, dy int) (Verdict, *apperr.Error) {
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 || (dx == 0 && dy == 0) {
		return Verdict{}, apperr.New(apperr.InvalidMove, "dx,dy must be in {-1,0,1} and not both zero").
			WithContext(apperr.Context{Action: "move", PlayerID: playerID.String()})
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return Verdict{}, apperr.New(apperr.GameNotRunning, "game is not running").
			WithContext(apperr.Context{Action: "move", PlayerID: playerID.String()})
	}

	p, ok := g.activePlayers[playerID]
	if !ok {
		return Verdict{}, apperr.New(apperr.NoSuchPlayer, "no such active player").
			WithContext(apperr.Context{Action: "move", PlayerID: playerID.String()})
	}

	nx, ny := p.X+dx, p.Y+dy
	verdict := g.validateMove(playerID, nx, ny)

	if verdict.Kind != VerdictOK {
		g.bus.Publish(events.Event{
			Kind:  events.Bump,
			Scope: events.Targeted(playerID.String()),
			Payload: events.BumpPayload{
				PlayerID:    playerID.String(),
				Verdict:     string(verdict.Kind),
				AttemptedX:  nx,
				AttemptedY:  ny,
				CurrentX:    p.X,
				CurrentY:    p.Y,
				OtherPlayer: uuidOrEmpty(verdict.OtherPlayer),
				OtherEntity: uuidOrEmpty(verdict.OtherEntity),
				Timestamp:   nowMillis(),
			},
		})
		return verdict, nil
	}

	p.X, p.Y = nx, ny
	p.LastActivity = time.Now()

	// Collect any collectible entity at the new cell (SPEC_FULL.md §4 C4).
	for _, ref := range g.board.EntitiesAt(nx, ny) {
		ent, ok := g.entities[ref.EntityID]
		if ok && !ent.Solid && ent.Collectible {
			g.board.RemoveEntity(ent.EntityID, nx, ny)
			delete(g.entities, ent.EntityID)
			g.score++
		}
	}

	return verdict, nil
}

func uuidOrEmpty(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// SpawnEntity adds a new entity to the board.
func (g *Game) SpawnEntity(entityType string, x, y int, solid bool, glyph board.Glyph, zOrder int, collectible bool) (*Entity, *apperr.Error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.board.InBounds(x, y) {
		return nil, apperr.New(apperr.OutOfBounds, "spawn location out of bounds").
			WithContext(apperr.Context{Action: "spawnEntity"})
	}

	id := uuid.New()
	if err := g.board.PushEntity(id, x, y, solid); err != nil {
		return nil, apperr.New(apperr.EntityConflict, err.Error()).
			WithContext(apperr.Context{Action: "spawnEntity"})
	}

	e := &Entity{
		EntityID:    id,
		EntityType:  entityType,
		X:           x,
		Y:           y,
		Solid:       solid,
		Glyph:       glyph,
		ZOrder:      zOrder,
		Collectible: collectible,
	}
	g.entities[id] = e
	return e, nil
}

// DespawnEntity removes an entity. An unknown entityID leaves state
// unchanged and returns NO_SUCH_ENTITY.
func (g *Game) DespawnEntity(entityID uuid.UUID) *apperr.Error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entities[entityID]
	if !ok {
		return apperr.New(apperr.NoSuchEntity, "no such entity").
			WithContext(apperr.Context{Action: "despawnEntity"})
	}
	g.board.RemoveEntity(entityID, e.X, e.Y)
	delete(g.entities, entityID)
	return nil
}

// PurgeExpired drops disconnected players older than graceMs. Idempotent
// for any fixed (now, graceMs).
func (g *Game) PurgeExpired(now time.Time, graceMs time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, dp := range g.disconnectedPlayers {
		if now.Sub(dp.disconnectedAt) > graceMs {
			delete(g.disconnectedPlayers, id)
		}
	}
}

// Reset rebuilds the board from the original description, clears all
// players and entities, resets score, and sets running=true. Callers are
// responsible for broadcasting the result; Reset itself emits nothing.
// A Game built without a description keeps its board, with every entity
// removed from the cell queues.
func (g *Game) Reset() *apperr.Error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.boardDesc != nil {
		b, err := board.Build(g.boardDesc, g.boardMeta)
		if err != nil {
			return apperr.Internal("reset", err)
		}
		g.board = b
	} else {
		for id, e := range g.entities {
			g.board.RemoveEntity(id, e.X, e.Y)
		}
	}

	g.activePlayers = make(map[uuid.UUID]*Player)
	g.disconnectedPlayers = make(map[uuid.UUID]*disconnectedPlayer)
	g.entities = make(map[uuid.UUID]*Entity)
	g.score = 0
	g.running = true
	return nil
}
