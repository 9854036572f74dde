package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/rules"
	"example.com/timed_chess_server/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTimer struct {
	mu    sync.Mutex
	armed map[string]time.Time
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{armed: map[string]time.Time{}}
}

func (f *fakeTimer) Arm(gameID string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[gameID] = at
}

func (f *fakeTimer) Disarm(gameID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, gameID)
}

func (f *fakeTimer) Armed(gameID string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.armed[gameID]
	return at, ok
}

// flakyStore fails writes on demand and counts loads.
type flakyStore struct {
	*store.Memory
	failSaves atomic.Bool
	failLoads atomic.Bool
	loads     atomic.Int32
	gate      chan struct{} // when set, LoadGame waits on it
}

func (s *flakyStore) SaveGame(ctx context.Context, rec game.Record) error {
	if s.failSaves.Load() {
		return errors.New("disk unavailable")
	}
	return s.Memory.SaveGame(ctx, rec)
}

func (s *flakyStore) LoadGame(ctx context.Context, gameID string) (game.Record, error) {
	s.loads.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.failLoads.Load() {
		return game.Record{}, errors.New("disk unavailable")
	}
	return s.Memory.LoadGame(ctx, gameID)
}

type recordingSub struct {
	mu     sync.Mutex
	id     string
	events []game.Event
}

func (s *recordingSub) ID() string { return s.id }

func (s *recordingSub) Deliver(ev game.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSub) Close() {}

func (s *recordingSub) Types() []game.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []game.EventType
	for _, ev := range s.events {
		out = append(out, ev.Type)
	}
	return out
}

func (s *recordingSub) Last() game.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type harness struct {
	clock *fakeClock
	timer *fakeTimer
	store *flakyStore
	rooms *broadcast.Dispatcher
	reg   *Registry
	ids   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		timer: newFakeTimer(),
		store: &flakyStore{Memory: store.NewMemory()},
		rooms: broadcast.NewDispatcher(),
	}
	h.reg = NewRegistry(Options{
		Rules: rules.NewChess(),
		Store: h.store,
		Rooms: h.rooms,
		Timer: h.timer,
		Now:   h.clock.Now,
		NewID: func() string {
			h.ids++
			return fmt.Sprintf("game-%d", h.ids)
		},
		RetryDelay: 500 * time.Millisecond,
	})
	return h
}

// activeGame creates a game for alice (white) and seats bob (black).
func (h *harness) activeGame(t *testing.T, control time.Duration) *Coordinator {
	t.Helper()
	ctx := context.Background()
	snap, err := h.reg.Create(ctx, "alice", control)
	require.NoError(t, err)
	_, err = h.reg.JoinGame(ctx, snap.GameID, "bob")
	require.NoError(t, err)
	c, err := h.reg.Resolve(ctx, snap.GameID)
	require.NoError(t, err)
	return c
}

func (h *harness) watch(t *testing.T, c *Coordinator) *recordingSub {
	t.Helper()
	sub := &recordingSub{id: "watcher"}
	c.Watch(sub)
	return sub
}
