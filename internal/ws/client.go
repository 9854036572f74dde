package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"example.com/timed_chess_server/internal/game"
)

// Msg is the wire envelope in both directions.
type Msg struct {
	T string                 `json:"t"`           // type
	M map[string]interface{} `json:"m,omitempty"` // payload
}

// Client is one websocket connection. It is a broadcast subscriber: events
// are framed and queued on send without blocking.
type Client struct {
	id     string
	send   chan []byte
	now    func() time.Time
	cancel context.CancelFunc

	mu     sync.RWMutex
	player string
}

func newClient(buffer int, now func() time.Time, cancel context.CancelFunc) *Client {
	return &Client{id: randID(), send: make(chan []byte, buffer), now: now, cancel: cancel}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

func (c *Client) setPlayer(p string) {
	c.mu.Lock()
	c.player = p
	c.mu.Unlock()
}

// Deliver queues ev; false means the send buffer is full.
func (c *Client) Deliver(ev game.Event) bool {
	return c.enqueue(eventMsg(ev, c.now()))
}

// Close tears the connection down; the reader loop then cleans up.
func (c *Client) Close() {
	c.cancel()
}

func (c *Client) enqueue(msg Msg) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		return true
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func eventMsg(ev game.Event, now time.Time) Msg {
	view := ev.Snapshot.View(now)
	m := map[string]interface{}{
		"game":  view.GameID,
		"seq":   ev.Sequence,
		"state": view,
	}
	switch ev.Type {
	case game.EventMoveMade:
		m["move"] = ev.Move
	case game.EventGameOver:
		m["winner"] = view.Winner
		m["reason"] = view.Reason
	}
	return Msg{T: string(ev.Type), M: m}
}

func randID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
