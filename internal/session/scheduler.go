package session

import (
	"sync"
	"time"
)

// Timer arms one flag-fall wake-up per game.
type Timer interface {
	// Arm replaces any pending wake-up for gameID with one at the given instant.
	Arm(gameID string, at time.Time)
	// Disarm cancels the pending wake-up, if any. Safe to call repeatedly.
	Disarm(gameID string)
}

// Scheduler is a Timer backed by time.AfterFunc. When a wake-up fires it calls
// fire with the instant it was armed for; the receiver decides whether the
// wake-up is stale.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*armed
	fire   func(gameID string, at time.Time)
	now    func() time.Time
}

type armed struct {
	t  *time.Timer
	at time.Time
}

func NewScheduler(fire func(gameID string, at time.Time), now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{timers: map[string]*armed{}, fire: fire, now: now}
}

func (s *Scheduler) Arm(gameID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[gameID]; ok {
		prev.t.Stop()
	}
	a := &armed{at: at}
	// The callback takes s.mu, so it cannot observe a before it is stored.
	a.t = time.AfterFunc(at.Sub(s.now()), func() {
		s.mu.Lock()
		current := s.timers[gameID] == a
		if current {
			delete(s.timers, gameID)
		}
		s.mu.Unlock()
		if current {
			s.fire(gameID, at)
		}
	})
	s.timers[gameID] = a
}

func (s *Scheduler) Disarm(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.timers[gameID]; ok {
		a.t.Stop()
		delete(s.timers, gameID)
	}
}

// Armed returns the pending wake-up instant for gameID.
func (s *Scheduler) Armed(gameID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.timers[gameID]
	if !ok {
		return time.Time{}, false
	}
	return a.at, true
}

// Stop cancels every pending wake-up.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.timers {
		a.t.Stop()
		delete(s.timers, id)
	}
}
