package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"example.com/timed_chess_server/internal/game"
)

// Memory keeps records in process memory. Records are copied on the way in
// and out so callers never share a move slice with the store.
type Memory struct {
	mu    sync.RWMutex
	games map[string]game.Record
}

func NewMemory() *Memory {
	return &Memory{games: map[string]game.Record{}}
}

func (m *Memory) LoadGame(ctx context.Context, gameID string) (game.Record, error) {
	if err := ctx.Err(); err != nil {
		return game.Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[gameID]
	if !ok {
		return game.Record{}, ErrNotFound
	}
	rec.Moves = slices.Clone(rec.Moves)
	return rec, nil
}

func (m *Memory) SaveGame(ctx context.Context, rec game.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Moves = slices.Clone(rec.Moves)
	m.mu.Lock()
	m.games[rec.GameID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) ActiveGameIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, rec := range m.games {
		if rec.Status == game.StatusActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }
