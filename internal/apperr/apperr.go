// Package apperr defines the stable error taxonomy carried in ERROR wire
// messages. Every rejected client action resolves to exactly one Code.
package apperr

import "fmt"

// Code is a stable, wire-visible error identifier.
type Code string

// Transport / parse errors.
const (
	MalformedJSON Code = "MALFORMED_JSON"
	MissingType   Code = "MISSING_TYPE"
	InvalidType   Code = "INVALID_TYPE"
	InvalidInput  Code = "INVALID_INPUT"
)

// Session errors.
const (
	NotConnected  Code = "NOT_CONNECTED"
	UnknownClient Code = "UNKNOWN_CLIENT"
	GraceExpired  Code = "GRACE_EXPIRED"
)

// Game rule errors.
const (
	GameNotRunning   Code = "GAME_NOT_RUNNING"
	InvalidMove      Code = "INVALID_MOVE"
	MoveFailedWall   Code = "MOVE_FAILED_WALL"
	MoveFailedEntity Code = "MOVE_FAILED_ENTITY"
	MoveFailedPlayer Code = "MOVE_FAILED_PLAYER"
	OutOfBounds      Code = "OUT_OF_BOUNDS"
	NoSuchPlayer     Code = "NO_SUCH_PLAYER"
	NoSuchEntity     Code = "NO_SUCH_ENTITY"
	EntityConflict   Code = "ENTITY_CONFLICT"
	NoSpawnCell      Code = "NO_SPAWN_CELL"
	PlayerAddFailed  Code = "PLAYER_ADD_FAILED"
)

// Server errors.
const (
	InternalError  Code = "INTERNAL_ERROR"
	ServerShutdown Code = "SERVER_SHUTDOWN"
	RateLimited    Code = "RATE_LIMITED"
)

// Context carries optional structured detail for an ERROR payload.
type Context struct {
	Action       string `json:"action,omitempty"`
	PlayerID     string `json:"playerId,omitempty"`
	Reason       string `json:"reason,omitempty"`
	OtherPlayer  string `json:"otherPlayerId,omitempty"`
	OtherEntity  string `json:"otherEntityId,omitempty"`
}

// Error is the Go-side representation of a rejected action. It is the only
// error type the engine, validator, and connection registry return for
// caller-facing failures; codec and server layers translate it into an
// ERROR wire message without string-matching.
type Error struct {
	Code    Code
	Message string
	Context Context
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithContext returns a copy of e carrying ctx.
func (e *Error) WithContext(ctx Context) *Error {
	cp := *e
	cp.Context = ctx
	return &cp
}

// Internal wraps an unexpected internal failure, mapping it to INTERNAL_ERROR
// while preserving the original error text for logs.
func Internal(action string, cause error) *Error {
	return &Error{
		Code:    InternalError,
		Message: cause.Error(),
		Context: Context{Action: action},
	}
}
