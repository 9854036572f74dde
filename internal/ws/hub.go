// Package ws is the websocket transport. Each connection can identify a
// player, watch games and submit operations; game events reach it through
// the broadcast dispatcher.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
)

// Games is the set of caller-facing operations the transport drives.
type Games interface {
	Create(ctx context.Context, whitePlayerID string, timeControl time.Duration) (game.Snapshot, error)
	WatchGame(ctx context.Context, gameID string, sub broadcast.Subscriber) (game.Snapshot, error)
	JoinGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
	MakeMove(ctx context.Context, gameID, playerID, move string) (game.Snapshot, error)
	ResignGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
	AbortGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
}

// Rooms lets the hub drop a closed connection from every room.
type Rooms interface {
	UnsubscribeAll(sub broadcast.Subscriber)
}

type Hub struct {
	allowOrigins map[string]bool
	games        Games
	rooms        Rooms
	buffer       int
	now          func() time.Time

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(allow []string, games Games, rooms Rooms, buffer int) *Hub {
	m := map[string]bool{}
	for _, a := range allow {
		if a != "" {
			m[a] = true
		}
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		allowOrigins: m,
		games:        games,
		rooms:        rooms,
		buffer:       buffer,
		now:          time.Now,
		clients:      map[*Client]struct{}{},
	}
}

// Clients reports the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ---------- websockets ----------

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && !h.allowOrigins[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	client := newClient(h.buffer, h.now, cancel)
	client.setPlayer(r.URL.Query().Get("player"))

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveConnections.Inc()
	log.Printf("client %s connected player=%s", client.id, client.Player())

	// writer
	go func() {
		ping := time.NewTicker(15 * time.Second)
		defer func() { ping.Stop(); _ = c.Close(websocket.StatusNormalClosure, "bye") }()
		for {
			select {
			case msg := <-client.send:
				if err := c.Write(ctx, websocket.MessageText, msg); err != nil {
					cancel()
					return
				}
			case <-ping.C:
				_ = c.Ping(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	// reader
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		metrics.MessagesReceived.Inc()
		var m Msg
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		h.handle(ctx, client, m)
	}

	// disconnect
	cancel()
	h.rooms.UnsubscribeAll(client)
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	metrics.ActiveConnections.Dec()
	log.Printf("client %s disconnected", client.id)
}

func (h *Hub) handle(ctx context.Context, client *Client, m Msg) {
	gameID, _ := m.M["game"].(string)

	switch m.T {

	// ---- Identity ----
	case "hello":
		if p, _ := m.M["player"].(string); p != "" {
			client.setPlayer(p)
		}
		h.sendTo(client, Msg{T: "hello", M: map[string]interface{}{"id": client.id, "player": client.Player()}})

	// ---- Lobby ----
	case "create_game":
		var control time.Duration
		if v, ok := m.M["timeControlMillis"].(float64); ok && v > 0 {
			control = time.Duration(v) * time.Millisecond
		}
		snap, err := h.games.Create(ctx, client.Player(), control)
		if err != nil {
			h.sendError(client, m.T, err)
			return
		}
		h.sendTo(client, Msg{T: "created", M: map[string]interface{}{"game": snap.GameID, "state": snap.View(h.now())}})
		h.watch(ctx, client, m.T, snap.GameID)

	case "watch":
		h.watch(ctx, client, m.T, gameID)

	case "join_game":
		if !h.watch(ctx, client, m.T, gameID) {
			return
		}
		if _, err := h.games.JoinGame(ctx, gameID, client.Player()); err != nil {
			h.sendError(client, m.T, err)
		}

	// ---- Play ----
	case "make_move":
		mv, _ := m.M["move"].(string)
		_, err := h.games.MakeMove(ctx, gameID, client.Player(), mv)
		// A flag-fall reaches the room as game_over; it is not the sender's fault.
		if err != nil && !errors.Is(err, game.ErrTimeout) {
			h.sendError(client, m.T, err)
		}

	case "resign":
		if _, err := h.games.ResignGame(ctx, gameID, client.Player()); err != nil && !errors.Is(err, game.ErrTimeout) {
			h.sendError(client, m.T, err)
		}

	case "abort":
		if _, err := h.games.AbortGame(ctx, gameID, client.Player()); err != nil && !errors.Is(err, game.ErrTimeout) {
			h.sendError(client, m.T, err)
		}

	case "pong":
		// ignore
	}
}

func (h *Hub) watch(ctx context.Context, client *Client, op, gameID string) bool {
	if _, err := h.games.WatchGame(ctx, gameID, client); err != nil {
		h.sendError(client, op, err)
		return false
	}
	return true
}

func (h *Hub) sendTo(c *Client, msg Msg) {
	_ = c.enqueue(msg)
}

func (h *Hub) sendError(c *Client, op string, err error) {
	h.sendTo(c, Msg{T: "error", M: map[string]interface{}{"op": op, "code": string(game.CodeOf(err))}})
}
