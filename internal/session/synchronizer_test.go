package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/store"
)

func TestSynchronizer_Commit(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Memory: store.NewMemory()}
	syncer := NewSynchronizer(s, time.Second)

	snap := game.Snapshot{
		GameID:         "g",
		WhitePlayerID:  "alice",
		BlackPlayerID:  "bob",
		Position:       afterE4,
		Moves:          []string{"e2e4"},
		Status:         game.StatusActive,
		Result:         game.ResultOngoing,
		Turn:           game.Black,
		TimeControl:    time.Minute,
		WhiteRemaining: 59 * time.Second,
		BlackRemaining: time.Minute,
		Sequence:       1,
	}
	require.NoError(t, syncer.Commit(ctx, snap))

	rec, err := s.LoadGame(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, snap.Record(), rec)
	assert.Equal(t, int64(59000), rec.WhiteRemainingMillis)

	s.failSaves.Store(true)
	err = syncer.Commit(ctx, snap)
	assert.ErrorIs(t, err, game.ErrStoreUnavailable)
	assert.Equal(t, game.CodeStoreUnavailable, game.CodeOf(err))
}
