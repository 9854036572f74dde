// Package session owns the live, authoritative state of every game. A
// Registry maps game ids to Coordinators, loading each game from the store the
// first time it is touched; a Coordinator serializes all mutations of its
// game, commits them through the Synchronizer, publishes them to the game's
// room and keeps the flag-fall timer armed.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
	"example.com/timed_chess_server/internal/rules"
	"example.com/timed_chess_server/internal/store"
)

// Options configures a Registry. Rules, Store and Rooms are required.
type Options struct {
	Rules              rules.Engine
	Store              store.Store
	Rooms              Rooms
	Timer              Timer // defaults to a Scheduler driving the registry
	Now                func() time.Time
	NewID              func() string
	CommitTimeout      time.Duration
	RetryDelay         time.Duration
	DefaultTimeControl time.Duration
}

// Registry is the process-wide map of live sessions. Sessions are never
// evicted; a finished game stays in memory until the process exits.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Coordinator
	group    singleflight.Group

	store       store.Store
	d           *deps
	newID       func() string
	timeControl time.Duration
	scheduler   *Scheduler
}

func NewRegistry(opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.DefaultTimeControl <= 0 {
		opts.DefaultTimeControl = 10 * time.Minute
	}
	r := &Registry{
		sessions:    map[string]*Coordinator{},
		store:       opts.Store,
		newID:       opts.NewID,
		timeControl: opts.DefaultTimeControl,
	}
	timer := opts.Timer
	if timer == nil {
		r.scheduler = NewScheduler(r.onExpire, opts.Now)
		timer = r.scheduler
	}
	r.d = &deps{
		rules:      opts.Rules,
		sync:       NewSynchronizer(opts.Store, opts.CommitTimeout),
		timer:      timer,
		rooms:      opts.Rooms,
		now:        opts.Now,
		retryDelay: opts.RetryDelay,
	}
	return r
}

// Resolve returns the live coordinator for gameID, loading it from the store
// on first use. Concurrent first resolutions share a single load.
func (r *Registry) Resolve(ctx context.Context, gameID string) (*Coordinator, error) {
	if gameID == "" {
		return nil, game.New(game.CodeInvalidArgument, "game id is required")
	}
	if c := r.lookup(gameID); c != nil {
		return c, nil
	}
	v, err, _ := r.group.Do(gameID, func() (any, error) {
		if c := r.lookup(gameID); c != nil {
			return c, nil
		}
		// The load is shared by every waiter, so no single caller may cancel it.
		return r.hydrate(context.WithoutCancel(ctx), gameID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Coordinator), nil
}

func (r *Registry) hydrate(ctx context.Context, gameID string) (*Coordinator, error) {
	rec, err := r.store.LoadGame(ctx, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, game.Wrap(game.CodeStoreUnavailable, "load game "+gameID, err)
	}
	turn, err := r.d.rules.Turn(rec.Position)
	if err != nil {
		return nil, game.Wrap(game.CodeInternal, "load game "+gameID, err)
	}
	// Time spent while the game was not in memory is not charged to anyone:
	// the running clock restarts from its persisted budget.
	c := newCoordinator(rec.Snapshot(turn, r.d.now()), r.d)
	r.insert(c)
	c.resume()
	metrics.Hydrations.Inc()
	log.Printf("game %s hydrated status=%s seq=%d", gameID, rec.Status, rec.Sequence)
	return c, nil
}

// Create persists a new pending game with whitePlayerID seated as white. A
// non-positive timeControl selects the default.
func (r *Registry) Create(ctx context.Context, whitePlayerID string, timeControl time.Duration) (game.Snapshot, error) {
	if whitePlayerID == "" {
		return game.Snapshot{}, game.New(game.CodeInvalidArgument, "player id is required")
	}
	if timeControl <= 0 {
		timeControl = r.timeControl
	}
	snap := game.Snapshot{
		GameID:         r.newID(),
		WhitePlayerID:  whitePlayerID,
		Position:       r.d.rules.Initial(),
		Status:         game.StatusPending,
		Result:         game.ResultOngoing,
		Turn:           game.White,
		TimeControl:    timeControl,
		WhiteRemaining: timeControl,
		BlackRemaining: timeControl,
		LastTickAt:     r.d.now(),
	}
	if err := r.d.sync.Commit(ctx, snap); err != nil {
		return game.Snapshot{}, err
	}
	r.insert(newCoordinator(snap, r.d))
	log.Printf("game %s created white=%s control=%s", snap.GameID, whitePlayerID, timeControl)
	return snap.Clone(), nil
}

// Recover loads every game persisted as active so its clock is armed again.
func (r *Registry) Recover(ctx context.Context) (int, error) {
	ids, err := r.store.ActiveGameIDs(ctx)
	if err != nil {
		return 0, game.Wrap(game.CodeStoreUnavailable, "list active games", err)
	}
	n := 0
	for _, id := range ids {
		if _, err := r.Resolve(ctx, id); err != nil {
			log.Printf("game %s recover failed: %v", id, err)
			continue
		}
		n++
	}
	return n, nil
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close cancels all pending flag-fall timers.
func (r *Registry) Close() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

func (r *Registry) lookup(gameID string) *Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[gameID]
}

func (r *Registry) insert(c *Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[c.GameID()]; !ok {
		metrics.LiveSessions.Inc()
	}
	r.sessions[c.GameID()] = c
}

func (r *Registry) onExpire(gameID string, at time.Time) {
	if c := r.lookup(gameID); c != nil {
		c.expire(at)
	}
}
