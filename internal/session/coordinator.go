package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/clock"
	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
	"example.com/timed_chess_server/internal/rules"
)

// Rooms is the broadcast side of the coordinator.
type Rooms interface {
	Publish(gameID string, ev game.Event)
	Subscribe(gameID string, sub broadcast.Subscriber, snapshot game.Event)
}

// deps are shared by every coordinator a registry creates.
type deps struct {
	rules      rules.Engine
	sync       *Synchronizer
	timer      Timer
	rooms      Rooms
	now        func() time.Time
	retryDelay time.Duration
}

// Coordinator is the single writer of one game's state. Every operation runs
// under mu; a mutation becomes visible (state, broadcast, timer) only after
// the store accepted it.
type Coordinator struct {
	id      string
	mu      sync.Mutex
	state   game.Snapshot
	armedAt time.Time
	d       *deps
}

func newCoordinator(snap game.Snapshot, d *deps) *Coordinator {
	return &Coordinator{id: snap.GameID, state: snap, d: d}
}

func (c *Coordinator) GameID() string {
	return c.id
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() game.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Watch subscribes sub to the game's room. The current state is delivered
// first, under the same lock that orders every later event.
func (c *Coordinator) Watch(sub broadcast.Subscriber) game.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.d.rooms.Subscribe(c.state.GameID, sub, game.NewEvent(game.EventState, c.state))
	return c.state.Clone()
}

// Join seats playerID as black and starts both clocks.
func (c *Coordinator) Join(ctx context.Context, playerID string) (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.state
	switch {
	case playerID == "":
		return cur.Clone(), game.New(game.CodeInvalidArgument, "player id is required")
	case cur.Status != game.StatusPending:
		return cur.Clone(), game.ErrNotJoinable
	case playerID == cur.WhitePlayerID:
		return cur.Clone(), game.ErrSelfJoin
	}

	now := c.d.now()
	next := cur.Clone()
	next.BlackPlayerID = playerID
	next.WhiteRemaining = next.TimeControl
	next.BlackRemaining = next.TimeControl
	next.LastTickAt = now
	next.Status = game.StatusActive
	if err := c.commit(ctx, next, game.NewEvent(game.EventJoined, next)); err != nil {
		return cur.Clone(), err
	}
	c.armLocked(clock.Deadline(next.Remaining(next.Turn), now))
	log.Printf("game %s join black=%s", next.GameID, playerID)
	return next.Clone(), nil
}

// SubmitMove applies one ply for playerID. The mover's clock is charged
// before the rules are consulted: a move that arrives after the flag fell
// ends the game on time, however legal it is.
func (c *Coordinator) SubmitMove(ctx context.Context, playerID, move string) (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.state
	switch {
	case cur.Status.Terminal():
		return cur.Clone(), game.ErrGameOver
	case cur.Status == game.StatusPending:
		return cur.Clone(), game.ErrNotStarted
	case playerID == "" || playerID != cur.PlayerID(cur.Turn):
		return cur.Clone(), game.ErrWrongTurn
	}

	side := cur.Turn
	now := c.d.now()
	left, expired := clock.Charge(cur.Remaining(side), cur.LastTickAt, now)
	if expired {
		return c.flagFallLocked(ctx, now)
	}

	out, err := c.d.rules.Apply(cur.Position, move)
	if errors.Is(err, rules.ErrIllegalMove) {
		return cur.Clone(), game.Wrap(game.CodeIllegalMove, fmt.Sprintf("illegal move %q", move), err)
	}
	if err != nil {
		return cur.Clone(), game.Wrap(game.CodeInternal, "apply move", err)
	}

	next := cur.Clone()
	next.SetRemaining(side, left)
	next.Position = out.Position
	next.Moves = append(next.Moves, out.Move)
	next.Turn = side.Other()
	next.LastTickAt = now
	next.Sequence++
	switch out.Terminal {
	case rules.Checkmate:
		finish(&next, game.StatusCompleted, game.WinFor(side), game.ReasonCheckmate)
	case rules.Stalemate:
		finish(&next, game.StatusCompleted, game.ResultDraw, game.ReasonStalemate)
	case rules.Draw:
		finish(&next, game.StatusCompleted, game.ResultDraw, game.ReasonDraw)
	}

	moved := game.NewEvent(game.EventMoveMade, next)
	moved.Move = out.Move
	if err := c.commit(ctx, next, moved); err != nil {
		return cur.Clone(), err
	}
	metrics.MovesAccepted.Inc()
	if next.Status.Terminal() {
		c.endLocked()
	} else {
		c.armLocked(clock.Deadline(next.Remaining(next.Turn), now))
	}
	return next.Clone(), nil
}

// Resign forfeits an active game on behalf of playerID.
func (c *Coordinator) Resign(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.forfeit(ctx, playerID, game.StatusCompleted, game.ReasonResignation)
}

// Abort ends a pending or active game on behalf of playerID. A pending game
// has no opponent to credit and is recorded as a draw.
func (c *Coordinator) Abort(ctx context.Context, playerID string) (game.Snapshot, error) {
	return c.forfeit(ctx, playerID, game.StatusAborted, game.ReasonAborted)
}

func (c *Coordinator) forfeit(ctx context.Context, playerID string, status game.Status, reason game.Reason) (game.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.state
	if cur.Status.Terminal() {
		return cur.Clone(), game.ErrGameOver
	}
	side, ok := cur.PlayerSide(playerID)
	if !ok {
		return cur.Clone(), game.ErrNotParticipant
	}

	now := c.d.now()
	next := cur.Clone()
	next.Sequence++
	switch {
	case cur.Status == game.StatusPending && reason == game.ReasonResignation:
		return cur.Clone(), game.ErrNotStarted
	case cur.Status == game.StatusPending:
		finish(&next, status, game.ResultDraw, reason)
	default:
		left, expired := clock.Charge(cur.Remaining(cur.Turn), cur.LastTickAt, now)
		if expired {
			return c.flagFallLocked(ctx, now)
		}
		next.SetRemaining(cur.Turn, left)
		next.LastTickAt = now
		finish(&next, status, game.WinFor(side.Other()), reason)
	}

	if err := c.commit(ctx, next, game.NewEvent(game.EventGameOver, next)); err != nil {
		return cur.Clone(), err
	}
	c.endLocked()
	return next.Clone(), nil
}

// expire is the timer path. It is a no-op unless at is the instant currently
// armed and the game is still running.
func (c *Coordinator) expire(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.state
	if cur.Status != game.StatusActive || c.armedAt.IsZero() || !at.Equal(c.armedAt) {
		return
	}
	metrics.TimersFired.Inc()

	now := c.d.now()
	left, expired := clock.Charge(cur.Remaining(cur.Turn), cur.LastTickAt, now)
	if !expired {
		c.armLocked(clock.Deadline(left, now))
		return
	}

	if _, err := c.flagFallLocked(context.Background(), now); errors.Is(err, game.ErrStoreUnavailable) {
		log.Printf("game %s flag-fall not persisted, retrying in %s: %v", cur.GameID, c.d.retryDelay, err)
		c.armLocked(now.Add(c.d.retryDelay))
	}
}

// flagFallLocked ends the game on time against the side to move. It returns
// game.ErrTimeout alongside the terminal snapshot when the commit succeeds.
func (c *Coordinator) flagFallLocked(ctx context.Context, now time.Time) (game.Snapshot, error) {
	cur := c.state
	loser := cur.Turn
	next := cur.Clone()
	next.SetRemaining(loser, 0)
	next.LastTickAt = now
	next.Sequence++
	finish(&next, game.StatusCompleted, game.WinFor(loser.Other()), game.ReasonTimeout)
	if err := c.commit(ctx, next, game.NewEvent(game.EventGameOver, next)); err != nil {
		return cur.Clone(), err
	}
	c.endLocked()
	return next.Clone(), game.ErrTimeout
}

// resume arms the clock of a session just loaded from the store.
func (c *Coordinator) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != game.StatusActive {
		return
	}
	c.armLocked(clock.Deadline(c.state.Remaining(c.state.Turn), c.state.LastTickAt))
}

// commit persists next, then installs it and publishes ev. On failure the
// in-memory state is left exactly as it was.
func (c *Coordinator) commit(ctx context.Context, next game.Snapshot, ev game.Event) error {
	if err := c.d.sync.Commit(ctx, next); err != nil {
		metrics.CommitFailures.Inc()
		log.Printf("game %s commit seq=%d failed: %v", next.GameID, next.Sequence, err)
		return err
	}
	c.state = next
	c.d.rooms.Publish(next.GameID, ev)
	if ev.Type != game.EventGameOver && next.Status.Terminal() {
		c.d.rooms.Publish(next.GameID, game.NewEvent(game.EventGameOver, next))
	}
	return nil
}

func (c *Coordinator) armLocked(at time.Time) {
	c.armedAt = at
	c.d.timer.Arm(c.state.GameID, at)
}

func (c *Coordinator) endLocked() {
	c.armedAt = time.Time{}
	c.d.timer.Disarm(c.state.GameID)
	metrics.GamesFinished.WithLabelValues(string(c.state.Reason)).Inc()
	log.Printf("game %s over result=%s reason=%s seq=%d", c.state.GameID, c.state.Result, c.state.Reason, c.state.Sequence)
}

func finish(s *game.Snapshot, status game.Status, result game.Result, reason game.Reason) {
	s.Status = status
	s.Result = result
	s.Reason = reason
}
