package server

import (
	"strings"

	"github.com/google/uuid"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/lab1702/gridkeep/internal/engine/events"
	"github.com/lab1702/gridkeep/internal/protocol"
)

// wireEvents subscribes the server's bus bridge: BUMP becomes a targeted
// ERROR describing why the move was rejected, PLAYER_JOINED and
// PLAYER_LEFT become broadcasts (spec.md §4.5, the only path from engine
// events to wire bytes).
func (s *Server) wireEvents() {
	s.game.Bus().Subscribe(func(e events.Event) {
		switch e.Kind {
		case events.Bump:
			s.onBump(e)
		case events.PlayerJoined:
			s.onPlayerJoined(e)
		case events.PlayerLeft:
			s.onPlayerLeft(e)
		}
	})
}

func bumpCode(verdict string) apperr.Code {
	switch verdict {
	case "WALL":
		return apperr.MoveFailedWall
	case "PLAYER":
		return apperr.MoveFailedPlayer
	case "ENTITY":
		return apperr.MoveFailedEntity
	case "OUT_OF_BOUNDS":
		return apperr.OutOfBounds
	default:
		return apperr.InvalidMove
	}
}

func (s *Server) onBump(e events.Event) {
	p, ok := e.Payload.(events.BumpPayload)
	if !ok {
		return
	}

	err := apperr.New(bumpCode(p.Verdict), "move rejected").WithContext(apperr.Context{
		Action:      "move",
		PlayerID:    p.PlayerID,
		Reason:      strings.ToLower(p.Verdict),
		OtherPlayer: p.OtherPlayer,
		OtherEntity: p.OtherEntity,
	})

	playerID, parseErr := uuid.Parse(e.Scope.PlayerID)
	if parseErr != nil {
		return
	}
	conn, ok := s.registry.FindByPlayerID(playerID)
	if !ok {
		return
	}
	s.sendErrorTo(conn.ClientID, err)
}

func (s *Server) onPlayerJoined(e events.Event) {
	p, ok := e.Payload.(events.PlayerJoinedPayload)
	if !ok {
		return
	}
	msg, err := protocol.BuildPlayerJoined(protocol.PlayerJoinedPayload{
		ClientID:       p.ClientID,
		PlayerID:       p.PlayerID,
		PlayerName:     p.PlayerName,
		X:              p.X,
		Y:              p.Y,
		IsReconnection: p.IsReconnection,
	}, nowMillis())
	if err != nil {
		s.log.WithError(err).Error("failed to build PLAYER_JOINED")
		return
	}
	s.registry.Broadcast(msg)
}

func (s *Server) onPlayerLeft(e events.Event) {
	p, ok := e.Payload.(events.PlayerLeftPayload)
	if !ok {
		return
	}
	msg, err := protocol.BuildPlayerLeft(protocol.PlayerLeftPayload{PlayerID: p.PlayerID}, nowMillis())
	if err != nil {
		s.log.WithError(err).Error("failed to build PLAYER_LEFT")
		return
	}
	s.registry.Broadcast(msg)
}
