package session

import (
	"context"
	"errors"

	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
)

// The caller-facing operations: each resolves the game and runs one
// coordinator operation against it.

func (r *Registry) GetGame(ctx context.Context, gameID string) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	return c.Snapshot(), nil
}

func (r *Registry) WatchGame(ctx context.Context, gameID string, sub broadcast.Subscriber) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	return c.Watch(sub), nil
}

func (r *Registry) JoinGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	snap, err := c.Join(ctx, playerID)
	return snap, observe(err)
}

func (r *Registry) MakeMove(ctx context.Context, gameID, playerID, move string) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	snap, err := c.SubmitMove(ctx, playerID, move)
	return snap, observe(err)
}

func (r *Registry) ResignGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	snap, err := c.Resign(ctx, playerID)
	return snap, observe(err)
}

func (r *Registry) AbortGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error) {
	c, err := r.Resolve(ctx, gameID)
	if err != nil {
		return game.Snapshot{}, observe(err)
	}
	snap, err := c.Abort(ctx, playerID)
	return snap, observe(err)
}

// observe counts rejected operations. A timeout is an outcome, not a
// rejection, but it is counted too so flag-falls on submit are visible.
func observe(err error) error {
	if err == nil {
		return nil
	}
	var e *game.Error
	if errors.As(err, &e) {
		metrics.OperationsRejected.WithLabelValues(string(e.Code)).Inc()
	}
	return err
}
