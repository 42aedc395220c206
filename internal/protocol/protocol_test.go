package protocol

import (
	"encoding/json"
	"testing"

	"github.com/lab1702/gridkeep/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMove(t *testing.T) {
	raw := []byte(`{"type":"MOVE","payload":{"dx":1,"dy":0},"timestamp":123}`)
	msg, errs := Parse(raw)
	require.Nil(t, errs)
	require.NotNil(t, msg.Move)
	assert.Equal(t, 1, msg.Move.Dx)
	assert.Equal(t, 0, msg.Move.Dy)
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	require.NotNil(t, err)
	assert.Equal(t, apperr.MalformedJSON, err.Code)
}

func TestParseMissingType(t *testing.T) {
	_, err := Parse([]byte(`{"payload":{}}`))
	require.NotNil(t, err)
	assert.Equal(t, apperr.MissingType, err.Code)
}

func TestParseInvalidType(t *testing.T) {
	_, err := Parse([]byte(`{"type":"NONSENSE","payload":{}}`))
	require.NotNil(t, err)
	assert.Equal(t, apperr.InvalidType, err.Code)
}

func TestParseInvalidInput(t *testing.T) {
	_, err := Parse([]byte(`{"type":"MOVE","payload":{"dx":"nope"}}`))
	require.NotNil(t, err)
	assert.Equal(t, apperr.InvalidInput, err.Code)
}

func TestBuildAndReparseRoundTrip(t *testing.T) {
	raw, err := BuildStateUpdate(StateUpdatePayload{
		Board:   BoardView{Width: 2, Height: 2, Grid: [][]string{{" ", "#"}, {"#", " "}}},
		Players: []PlayerView{{PlayerID: "p1", X: 1, Y: 1}},
		Score:   3,
		Running: true,
	}, 1000)
	require.NoError(t, err)

	var env1 Envelope
	require.NoError(t, json.Unmarshal(raw, &env1))

	// Re-marshal the same envelope and confirm re-parsing it yields an equal
	// envelope — round-tripping a server-built message is idempotent
	// (spec.md §8).
	raw2, err := json.Marshal(env1)
	require.NoError(t, err)

	var env2 Envelope
	require.NoError(t, json.Unmarshal(raw2, &env2))
	assert.Equal(t, env1, env2)
	assert.Equal(t, TagStateUpdate, env1.Type)
}

func TestDisconnectHasNoPayloadFields(t *testing.T) {
	msg, errs := Parse([]byte(`{"type":"DISCONNECT","payload":{}}`))
	require.Nil(t, errs)
	assert.Equal(t, TagDisconnect, msg.Type)
	assert.Nil(t, msg.Move)
	assert.Nil(t, msg.Connect)
}
