package connection

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab1702/gridkeep/internal/apperr"
)

type fakeSink struct {
	sent    [][]byte
	failNext bool
}

func (f *fakeSink) Send(b []byte) error {
	if f.failNext {
		return errors.New("boom")
	}
	f.sent = append(f.sent, b)
	return nil
}

func TestRegisterAndBindPlayer(t *testing.T) {
	r := NewRegistry()
	sink := &fakeSink{}
	clientID := r.Register(sink)

	playerID := uuid.New()
	err := r.BindPlayer(clientID, playerID, "Alice")
	require.Nil(t, err)

	c, ok := r.Get(clientID)
	require.True(t, ok)
	assert.True(t, c.HasPlayer)
	assert.Equal(t, playerID, c.PlayerID)
}

func TestBindPlayerUnknownClient(t *testing.T) {
	r := NewRegistry()
	err := r.BindPlayer(uuid.New(), uuid.New(), "Alice")
	require.NotNil(t, err)
	assert.Equal(t, apperr.UnknownClient, err.Code)
}

func TestMarkDisconnectedIsIdempotent(t *testing.T) {
	r := NewRegistry()
	clientID := r.Register(&fakeSink{})
	now := time.Now()

	r.MarkDisconnected(clientID, now)
	r.MarkDisconnected(clientID, now) // idempotent

	assert.Equal(t, 0, r.ActiveCount())
	assert.Equal(t, 1, r.DisconnectedCount())
}

func TestPurgeRemovesExpiredOnly(t *testing.T) {
	r := NewRegistry()
	c1 := r.Register(&fakeSink{})
	c2 := r.Register(&fakeSink{})

	now := time.Now()
	r.MarkDisconnected(c1, now)
	r.MarkDisconnected(c2, now.Add(50*time.Second))

	r.Purge(now.Add(61*time.Second), 60*time.Second)
	assert.Equal(t, 1, r.DisconnectedCount())
}

func TestBroadcastSkipsFailedSendsWithoutAborting(t *testing.T) {
	r := NewRegistry()
	good := &fakeSink{}
	bad := &fakeSink{failNext: true}
	r.Register(good)
	badID := r.Register(bad)

	failed := r.Broadcast([]byte("hello"))
	require.Len(t, failed, 1)
	assert.Equal(t, badID, failed[0])
	assert.Len(t, good.sent, 1)
}

func TestFindByPlayerID(t *testing.T) {
	r := NewRegistry()
	clientID := r.Register(&fakeSink{})
	playerID := uuid.New()
	require.Nil(t, r.BindPlayer(clientID, playerID, "A"))

	c, ok := r.FindByPlayerID(playerID)
	require.True(t, ok)
	assert.Equal(t, clientID, c.ClientID)

	_, ok = r.FindByPlayerID(uuid.New())
	assert.False(t, ok)
}
