package session

import (
	"context"
	"time"

	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/store"
)

// Synchronizer writes a session's authoritative fields to the store. The
// coordinator publishes nothing until Commit returns nil.
type Synchronizer struct {
	store   store.Store
	timeout time.Duration
}

func NewSynchronizer(s store.Store, timeout time.Duration) *Synchronizer {
	return &Synchronizer{store: s, timeout: timeout}
}

// Commit persists snap. Any store failure is reported as store_unavailable.
// The write is detached from ctx's cancellation: a caller that goes away
// mid-commit must not leave memory and store disagreeing.
func (s *Synchronizer) Commit(ctx context.Context, snap game.Snapshot) error {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.store.SaveGame(ctx, snap.Record()); err != nil {
		return game.Wrap(game.CodeStoreUnavailable, "commit game "+snap.GameID, err)
	}
	return nil
}
