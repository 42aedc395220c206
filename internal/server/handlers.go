package server

import (
	"time"

	"github.com/google/uuid"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/lab1702/gridkeep/internal/config"
	"github.com/lab1702/gridkeep/internal/engine"
	"github.com/lab1702/gridkeep/internal/protocol"
)

// dispatch parses one inbound frame and routes it to its handler
// (spec.md §4.7's per-message handling step of the read loop).
func (s *Server) dispatch(clientID uuid.UUID, raw []byte) {
	msg, perr := protocol.Parse(raw)
	if perr != nil {
		s.sendErrorTo(clientID, perr)
		return
	}

	switch msg.Type {
	case protocol.TagConnect:
		s.handleConnect(clientID, msg.Connect)
	case protocol.TagDisconnect:
		s.handleDisconnectMessage(clientID)
	case protocol.TagMove:
		s.handleMove(clientID, msg.Move)
	case protocol.TagSetPlayerName:
		s.handleSetPlayerName(clientID, msg.SetPlayerName)
	case protocol.TagRestart:
		s.handleRestart(clientID)
	case protocol.TagPing:
		s.handlePing(clientID)
	}
}

func (s *Server) sendErrorTo(clientID uuid.UUID, err *apperr.Error) {
	msg, buildErr := buildErrorMessage(err)
	if buildErr != nil {
		s.log.WithError(buildErr).Error("failed to build ERROR message")
		return
	}
	s.registry.SendTo(clientID, msg)
}

func buildErrorMessage(err *apperr.Error) ([]byte, error) {
	return protocol.BuildError(protocol.ErrorPayload{
		Code:    string(err.Code),
		Message: err.Message,
		Context: err.Context,
	}, nowMillis())
}

// handleConnect binds clientID to a player: restoring a disconnected
// player within grace if a playerId was supplied and is recognized, else
// adding a fresh player (spec.md §4.3, §4.7 scenarios S1-S5).
func (s *Server) handleConnect(clientID uuid.UUID, payload *protocol.ConnectPayload) {
	now := time.Now()
	snap := s.game.Snapshot()
	hintX, hintY := snap.Width/2, snap.Height/2

	var playerID uuid.UUID
	if payload.PlayerID != "" {
		id, err := uuid.Parse(payload.PlayerID)
		if err != nil {
			s.sendErrorTo(clientID, apperr.New(apperr.InvalidInput, "playerId is not a valid uuid"))
			return
		}
		playerID = id
	} else {
		playerID = uuid.New()
	}

	isReconnection := false
	player, aerr := s.game.RestorePlayer(playerID, clientID, now, s.cfg.PlayerGrace)
	if aerr == nil {
		isReconnection = true
	} else {
		// A grace-expired reconnect is treated as a brand new player, not a
		// failed restore (spec.md §8 "Reconnect at grace + 1 ms"): mint a
		// fresh playerId so AddPlayer doesn't collide with the still-present
		// (not yet purged) disconnected entry under the old one.
		if aerr.Code == apperr.GraceExpired {
			playerID = uuid.New()
		}
		player, aerr = s.game.AddPlayer(playerID, payload.PlayerName, clientID, hintX, hintY)
		if aerr != nil {
			s.sendErrorTo(clientID, aerr)
			return
		}
	}

	if payload.PlayerName != "" {
		s.game.SetPlayerName(playerID, payload.PlayerName)
		player.PlayerName = payload.PlayerName
	}

	if berr := s.registry.BindPlayer(clientID, playerID, player.PlayerName); berr != nil {
		s.sendErrorTo(clientID, berr)
		return
	}

	ack := protocol.ConnectAckPayload{
		ClientID:       clientID.String(),
		PlayerID:       playerID.String(),
		PlayerName:     player.PlayerName,
		IsReconnection: isReconnection,
		GameState:      buildStateUpdatePayload(s.game.Snapshot()),
	}
	msg, err := protocol.BuildConnectAck(ack, nowMillis())
	if err != nil {
		s.log.WithError(err).Error("failed to build CONNECT ack")
		return
	}
	s.registry.SendTo(clientID, msg)
	s.refreshGauges()
}

// handleDisconnectMessage is a voluntary client quit: the player is
// removed permanently, not held in the grace registry.
func (s *Server) handleDisconnectMessage(clientID uuid.UUID) {
	c, ok := s.registry.Get(clientID)
	if !ok || !c.HasPlayer {
		return
	}
	s.game.RemovePlayer(c.PlayerID, engine.RemoveQuit, time.Now())
	s.refreshGauges()
}

func (s *Server) handleMove(clientID uuid.UUID, payload *protocol.MovePayload) {
	c, ok := s.registry.Get(clientID)
	if !ok || !c.HasPlayer {
		s.sendErrorTo(clientID, apperr.New(apperr.NotConnected, "no player bound to this connection"))
		return
	}

	verdict, merr := s.game.MovePlayer(c.PlayerID, payload.Dx, payload.Dy)
	if merr != nil {
		s.sendErrorTo(clientID, merr)
		return
	}

	if s.metrics != nil {
		s.metrics.MovesTotal.WithLabelValues(string(verdict.Kind)).Inc()
	}

	if verdict.Kind == engine.VerdictOK && s.cfg.MovementBroadcastMode == config.BroadcastImmediate {
		s.broadcastState()
	}
}

func (s *Server) handleSetPlayerName(clientID uuid.UUID, payload *protocol.SetPlayerNamePayload) {
	c, ok := s.registry.Get(clientID)
	if !ok || !c.HasPlayer {
		s.sendErrorTo(clientID, apperr.New(apperr.NotConnected, "no player bound to this connection"))
		return
	}
	if !s.game.SetPlayerName(c.PlayerID, payload.PlayerName) {
		s.sendErrorTo(clientID, apperr.New(apperr.NoSuchPlayer, "player is no longer active"))
		return
	}
	c.PlayerName = payload.PlayerName
}

// handleRestart honors an unauthenticated RESTART by resetting the game
// and broadcasting the fresh state (an Open Question resolved in
// SPEC_FULL.md: RESTART carries no authorization check).
func (s *Server) handleRestart(clientID uuid.UUID) {
	if err := s.game.Reset(); err != nil {
		s.sendErrorTo(clientID, err)
		return
	}
	s.broadcastState()
	s.refreshGauges()
}

func (s *Server) handlePing(clientID uuid.UUID) {
	msg, err := protocol.BuildPong(nowMillis())
	if err != nil {
		s.log.WithError(err).Error("failed to build PONG")
		return
	}
	s.registry.SendTo(clientID, msg)
}
