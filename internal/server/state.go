package server

import (
	"time"

	"github.com/lab1702/gridkeep/internal/engine"
	"github.com/lab1702/gridkeep/internal/protocol"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// gridToStrings converts a rune grid into single-character strings, the
// same wire representation used for entity glyphs.
func gridToStrings(grid [][]rune) [][]string {
	out := make([][]string, len(grid))
	for y, row := range grid {
		strRow := make([]string, len(row))
		for x, ch := range row {
			strRow[x] = string(ch)
		}
		out[y] = strRow
	}
	return out
}

// buildStateUpdatePayload projects an engine snapshot into the wire shape
// of a STATE_UPDATE message (spec.md §4.4).
func buildStateUpdatePayload(snap engine.Snapshot) protocol.StateUpdatePayload {
	players := make([]protocol.PlayerView, 0, len(snap.Players))
	for _, p := range snap.Players {
		players = append(players, protocol.PlayerView{
			PlayerID:   p.PlayerID.String(),
			PlayerName: p.PlayerName,
			ClientID:   p.ClientID.String(),
			X:          p.X,
			Y:          p.Y,
		})
	}

	entities := make([]protocol.EntityView, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		entities = append(entities, protocol.EntityView{
			EntityID:   e.EntityID.String(),
			EntityType: e.EntityType,
			X:          e.X,
			Y:          e.Y,
			Solid:      e.Solid,
			Glyph:      string(e.Glyph),
			Color:      e.Color,
			ZOrder:     e.ZOrder,
		})
	}

	return protocol.StateUpdatePayload{
		Board: protocol.BoardView{
			Width:  snap.Width,
			Height: snap.Height,
			Grid:   gridToStrings(snap.Grid),
		},
		Players:  players,
		Entities: entities,
		Score:    snap.Score,
		Running:  snap.Running,
	}
}

// broadcastState sends a STATE_UPDATE to every active connection, timing
// the build+send and counting it (spec.md's domain metrics).
func (s *Server) broadcastState() {
	timer := func() func() {
		if s.metrics == nil {
			return func() {}
		}
		start := time.Now()
		return func() { s.metrics.BroadcastSeconds.Observe(time.Since(start).Seconds()) }
	}()
	defer timer()

	payload := buildStateUpdatePayload(s.game.Snapshot())
	msg, err := protocol.BuildStateUpdate(payload, nowMillis())
	if err != nil {
		s.log.WithError(err).Error("failed to build STATE_UPDATE")
		return
	}
	s.registry.Broadcast(msg)
	if s.metrics != nil {
		s.metrics.BroadcastsTotal.Inc()
	}
}
