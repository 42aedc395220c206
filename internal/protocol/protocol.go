// Package protocol implements the message codec (spec component C2): the
// only place that touches the on-wire JSON format. It parses and validates
// incoming envelopes into a closed IncomingMessage variant, and builds
// outgoing envelopes through a fixed set of builder functions — no other
// path may produce wire bytes.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lab1702/gridkeep/internal/apperr"
)

// Tag identifies a wire message type.
type Tag string

// Client -> server tags.
const (
	TagConnect        Tag = "CONNECT"
	TagDisconnect     Tag = "DISCONNECT"
	TagMove           Tag = "MOVE"
	TagSetPlayerName  Tag = "SET_PLAYER_NAME"
	TagRestart        Tag = "RESTART"
	TagPing           Tag = "PING"
)

// Server -> client tags.
const (
	TagStateUpdate  Tag = "STATE_UPDATE"
	TagPlayerJoined Tag = "PLAYER_JOINED"
	TagPlayerLeft   Tag = "PLAYER_LEFT"
	TagError        Tag = "ERROR"
	TagPong         Tag = "PONG"
)

var incomingTags = map[Tag]bool{
	TagConnect:       true,
	TagDisconnect:    true,
	TagMove:          true,
	TagSetPlayerName: true,
	TagRestart:       true,
	TagPing:          true,
}

// Envelope is the wire shape of every message, in either direction.
type Envelope struct {
	Type      Tag             `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	ClientID  string          `json:"clientId,omitempty"`
}

// outEnvelope mirrors Envelope but serializes Payload as a concrete value
// rather than as already-marshaled bytes, so builders can hand over plain
// structs.
type outEnvelope struct {
	Type      Tag         `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
	ClientID  string      `json:"clientId,omitempty"`
}

// --- Incoming payloads ---

// ConnectPayload is the payload of a client CONNECT message.
type ConnectPayload struct {
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
}

// MovePayload is the payload of a client MOVE message.
type MovePayload struct {
	Dx int `json:"dx"`
	Dy int `json:"dy"`
}

// SetPlayerNamePayload is the payload of a SET_PLAYER_NAME message.
type SetPlayerNamePayload struct {
	PlayerName string `json:"playerName"`
}

// IncomingMessage is the closed variant produced by Parse. Exactly one of
// the typed fields is populated, selected by Type.
type IncomingMessage struct {
	Type     Tag
	ClientID string

	Connect       *ConnectPayload
	Move          *MovePayload
	SetPlayerName *SetPlayerNamePayload
	// Disconnect, Restart and Ping carry empty payloads ({}); their
	// presence is fully captured by Type.
}

// Parse decodes raw bytes into an IncomingMessage, or returns an
// *apperr.Error describing exactly why parsing failed (spec.md §4.2).
func Parse(raw []byte) (*IncomingMessage, *apperr.Error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperr.New(apperr.MalformedJSON, err.Error())
	}
	if env.Type == "" {
		return nil, apperr.New(apperr.MissingType, "message is missing a type")
	}
	if !incomingTags[env.Type] {
		return nil, apperr.New(apperr.InvalidType, fmt.Sprintf("unknown message type %q", env.Type))
	}

	msg := &IncomingMessage{Type: env.Type, ClientID: env.ClientID}

	switch env.Type {
	case TagConnect:
		var p ConnectPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, apperr.New(apperr.InvalidInput, "invalid CONNECT payload: "+err.Error())
			}
		}
		msg.Connect = &p
	case TagMove:
		var p MovePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, apperr.New(apperr.InvalidInput, "invalid MOVE payload: "+err.Error())
		}
		msg.Move = &p
	case TagSetPlayerName:
		var p SetPlayerNamePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, apperr.New(apperr.InvalidInput, "invalid SET_PLAYER_NAME payload: "+err.Error())
		}
		msg.SetPlayerName = &p
	case TagDisconnect, TagRestart, TagPing:
		// payload-less tags; nothing further to decode.
	}

	return msg, nil
}
