// Package api wires the HTTP routes: the JSON game endpoints, health,
// metrics and the websocket upgrade.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"example.com/timed_chess_server/internal/game"
	"example.com/timed_chess_server/internal/metrics"
)

// PlayerHeader carries the caller's player id. Authentication is out of
// scope; the header is trusted as given.
const PlayerHeader = "X-Player-ID"

// Games is the set of operations the HTTP surface exposes.
type Games interface {
	Create(ctx context.Context, whitePlayerID string, timeControl time.Duration) (game.Snapshot, error)
	GetGame(ctx context.Context, gameID string) (game.Snapshot, error)
	JoinGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
	MakeMove(ctx context.Context, gameID, playerID, move string) (game.Snapshot, error)
	ResignGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
	AbortGame(ctx context.Context, gameID, playerID string) (game.Snapshot, error)
}

// NewRouter builds the HTTP router. ws may be nil when no websocket
// endpoint is served.
func NewRouter(games Games, origins []string, ws http.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	allowed := map[string]bool{}
	for _, o := range origins {
		if o != "" {
			allowed[o] = true
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return allowed[origin] },
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", PlayerHeader},
		MaxAge:          12 * time.Hour,
	}))

	h := &handlers{games: games, now: time.Now}

	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if ws != nil {
		router.GET("/ws", gin.WrapF(ws))
	}

	g := router.Group("/api/games")
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.POST("/:id/join", h.join)
	g.POST("/:id/moves", h.move)
	g.POST("/:id/resign", h.resign)
	g.POST("/:id/abort", h.abort)

	return router
}
