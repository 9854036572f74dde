// Package store persists game records. The session core reads a record once
// when a game is first touched and writes it back after every accepted
// mutation.
package store

import (
	"context"
	"errors"

	"example.com/timed_chess_server/internal/game"
)

// ErrNotFound is returned by LoadGame when no record exists.
var ErrNotFound = errors.New("record not found")

// Store is the durable game record store.
type Store interface {
	LoadGame(ctx context.Context, gameID string) (game.Record, error)
	SaveGame(ctx context.Context, rec game.Record) error
	// ActiveGameIDs lists games persisted with StatusActive.
	ActiveGameIDs(ctx context.Context) ([]string, error)
	Close() error
}
