package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"example.com/timed_chess_server/internal/broadcast"
	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/rules"
	"example.com/timed_chess_server/internal/session"
	"example.com/timed_chess_server/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	rooms := broadcast.NewDispatcher()
	reg := session.NewRegistry(session.Options{
		Rules: rules.NewChess(),
		Store: store.NewMemory(),
		Rooms: rooms,
	})
	t.Cleanup(reg.Close)
	hub := NewHub(nil, reg, rooms, 64)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, player string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?player=" + player
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func send(t *testing.T, c *websocket.Conn, msg Msg) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

// readUntil reads messages until one of type want arrives.
func readUntil(t *testing.T, c *websocket.Conn, want string) Msg {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var m Msg
		require.NoError(t, wsjson.Read(ctx, c, &m), "waiting for %s", want)
		if m.T == want {
			return m
		}
	}
}

func TestHub_GameFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, Msg{T: "create_game", M: map[string]interface{}{"timeControlMillis": 60000}})
	created := readUntil(t, alice, "created")
	gameID, _ := created.M["game"].(string)
	require.NotEmpty(t, gameID)

	state := readUntil(t, alice, "state")
	assert.Equal(t, gameID, state.M["game"])

	send(t, bob, Msg{T: "join_game", M: map[string]interface{}{"game": gameID}})
	readUntil(t, bob, "state")
	joined := readUntil(t, alice, "joined")
	assert.Equal(t, float64(0), joined.M["seq"])
	readUntil(t, bob, "joined")

	send(t, bob, Msg{T: "make_move", M: map[string]interface{}{"game": gameID, "move": "e7e5"}})
	errMsg := readUntil(t, bob, "error")
	assert.Equal(t, string(game.CodeWrongTurn), errMsg.M["code"])

	send(t, alice, Msg{T: "make_move", M: map[string]interface{}{"game": gameID, "move": "e4"}})
	for _, c := range []*websocket.Conn{alice, bob} {
		moved := readUntil(t, c, "move_made")
		assert.Equal(t, "e2e4", moved.M["move"])
		assert.Equal(t, float64(1), moved.M["seq"])
	}

	send(t, bob, Msg{T: "resign", M: map[string]interface{}{"game": gameID}})
	for _, c := range []*websocket.Conn{alice, bob} {
		over := readUntil(t, c, "game_over")
		assert.Equal(t, string(game.White), over.M["winner"])
		assert.Equal(t, string(game.ReasonResignation), over.M["reason"])
	}
}

func TestHub_WatchUnknownGame(t *testing.T) {
	srv, _ := newTestServer(t)
	carol := dial(t, srv, "carol")

	send(t, carol, Msg{T: "watch", M: map[string]interface{}{"game": "missing"}})
	errMsg := readUntil(t, carol, "error")
	assert.Equal(t, string(game.CodeNotFound), errMsg.M["code"])
	assert.Equal(t, "watch", errMsg.M["op"])
}

func TestHub_Hello(t *testing.T) {
	srv, hub := newTestServer(t)
	c := dial(t, srv, "")

	send(t, c, Msg{T: "hello", M: map[string]interface{}{"player": "dave"}})
	hello := readUntil(t, c, "hello")
	assert.Equal(t, "dave", hello.M["player"])
	assert.Equal(t, 1, hub.Clients())
}
