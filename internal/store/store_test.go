package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/timed_chess_server/internal/game"
)

func sampleRecord(id string, status game.Status) game.Record {
	return game.Record{
		GameID:               id,
		WhitePlayerID:        "alice",
		BlackPlayerID:        "bob",
		Position:             "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		Moves:                []string{"e2e4"},
		Status:               status,
		Result:               game.ResultOngoing,
		TimeControlMillis:    60000,
		WhiteRemainingMillis: 59000,
		BlackRemainingMillis: 60000,
		Sequence:             1,
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	sqlite, err := Open(ctx, Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "games.db"), ConnectRetries: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	mem, err := Open(ctx, Options{Driver: "memory"})
	require.NoError(t, err)

	return map[string]Store{"memory": mem, "sqlite": sqlite}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.LoadGame(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			rec := sampleRecord("g1", game.StatusActive)
			require.NoError(t, s.SaveGame(ctx, rec))

			got, err := s.LoadGame(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, rec, got)

			rec.Moves = append(rec.Moves, "e7e5")
			rec.Sequence = 2
			rec.Status = game.StatusCompleted
			rec.Result = game.ResultWhiteWins
			rec.Reason = game.ReasonTimeout
			require.NoError(t, s.SaveGame(ctx, rec))

			got, err = s.LoadGame(ctx, "g1")
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}
}

func TestStore_PendingRecordWithoutMoves(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleRecord("pending", game.StatusPending)
			rec.BlackPlayerID = ""
			rec.Moves = nil
			rec.Sequence = 0
			require.NoError(t, s.SaveGame(ctx, rec))

			got, err := s.LoadGame(ctx, "pending")
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}
}

func TestStore_ActiveGameIDs(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveGame(ctx, sampleRecord("b", game.StatusActive)))
			require.NoError(t, s.SaveGame(ctx, sampleRecord("a", game.StatusActive)))
			require.NoError(t, s.SaveGame(ctx, sampleRecord("c", game.StatusCompleted)))
			require.NoError(t, s.SaveGame(ctx, sampleRecord("d", game.StatusPending)))

			ids, err := s.ActiveGameIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids)
		})
	}
}

func TestMemory_CopiesMoves(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec := sampleRecord("g", game.StatusActive)
	require.NoError(t, m.SaveGame(ctx, rec))

	rec.Moves[0] = "d2d4"
	got, err := m.LoadGame(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4"}, got.Moves)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "cassandra"})
	assert.Error(t, err)
}

func TestSQL_Rebind(t *testing.T) {
	pg := &SQL{driver: "postgres"}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQL{driver: "sqlite"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
