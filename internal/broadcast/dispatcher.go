// Package broadcast fans game events out to the subscribers of each game's
// room, preserving the order in which the session core published them.
package broadcast

import (
	"log"
	"sync"

	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
)

// Subscriber receives events for the rooms it is subscribed to. Deliver must
// not block; returning false means the subscriber could not keep up and is
// dropped from every room.
type Subscriber interface {
	ID() string
	Deliver(ev game.Event) bool
	Close()
}

type member struct {
	sub     Subscriber
	lastSeq int64
}

type room struct {
	members map[Subscriber]*member
}

// Dispatcher holds the rooms. Publish and Subscribe for one game must be
// called from that game's single writer so that the snapshot handed to a new
// subscriber and the events that follow it cannot interleave.
type Dispatcher struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{rooms: map[string]*room{}}
}

// Subscribe adds sub to the game's room and delivers snapshot to it first.
// A subscriber already in the room is resynchronised with the new snapshot.
func (d *Dispatcher) Subscribe(gameID string, sub Subscriber, snapshot game.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.rooms[gameID]
	if r == nil {
		r = &room{members: map[Subscriber]*member{}}
		d.rooms[gameID] = r
	}
	if _, ok := r.members[sub]; !ok {
		metrics.Subscribers.Inc()
	}
	r.members[sub] = &member{sub: sub, lastSeq: snapshot.Sequence}
	if !sub.Deliver(snapshot) {
		d.evictLocked(sub)
	}
}

// Publish delivers ev to every subscriber of gameID. Events older than the
// last one a subscriber saw are skipped.
func (d *Dispatcher) Publish(gameID string, ev game.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.rooms[gameID]
	if r == nil {
		return
	}
	var slow []Subscriber
	for sub, m := range r.members {
		if ev.Sequence < m.lastSeq {
			continue
		}
		if !sub.Deliver(ev) {
			slow = append(slow, sub)
			continue
		}
		m.lastSeq = ev.Sequence
	}
	for _, sub := range slow {
		log.Printf("game %s dropping slow subscriber %s", gameID, sub.ID())
		d.evictLocked(sub)
	}
}

// Unsubscribe removes sub from one room.
func (d *Dispatcher) Unsubscribe(gameID string, sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked(gameID, sub)
}

// UnsubscribeAll removes sub from every room.
func (d *Dispatcher) UnsubscribeAll(sub Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.rooms {
		d.leaveLocked(id, sub)
	}
}

// Members reports how many subscribers the game's room holds.
func (d *Dispatcher) Members(gameID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r := d.rooms[gameID]; r != nil {
		return len(r.members)
	}
	return 0
}

func (d *Dispatcher) leaveLocked(gameID string, sub Subscriber) {
	r := d.rooms[gameID]
	if r == nil {
		return
	}
	if _, ok := r.members[sub]; ok {
		delete(r.members, sub)
		metrics.Subscribers.Dec()
	}
	if len(r.members) == 0 {
		delete(d.rooms, gameID)
	}
}

// evictLocked drops sub everywhere and closes it so its transport can
// reconnect and resubscribe from a fresh snapshot instead of seeing a gap.
func (d *Dispatcher) evictLocked(sub Subscriber) {
	for id, r := range d.rooms {
		if _, ok := r.members[sub]; !ok {
			continue
		}
		d.leaveLocked(id, sub)
	}
	metrics.SlowSubscribers.Inc()
	sub.Close()
}
