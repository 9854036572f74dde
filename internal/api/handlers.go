package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/timed_chess_server/internal/game"
)

type handlers struct {
	games Games
	now   func() time.Time
}

type createRequest struct {
	TimeControlMillis int64 `json:"timeControlMillis"`
}

type moveRequest struct {
	Move string `json:"move" binding:"required"`
}

func (h *handlers) create(c *gin.Context) {
	var req createRequest
	// An empty body means the default time control.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": game.CodeInvalidArgument})
			return
		}
	}
	if req.TimeControlMillis < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "timeControlMillis must not be negative", "code": game.CodeInvalidArgument})
		return
	}
	snap, err := h.games.Create(c.Request.Context(), c.GetHeader(PlayerHeader), time.Duration(req.TimeControlMillis)*time.Millisecond)
	if err != nil {
		h.fail(c, snap, err)
		return
	}
	c.JSON(http.StatusCreated, snap.View(h.now()))
}

func (h *handlers) get(c *gin.Context) {
	snap, err := h.games.GetGame(c.Request.Context(), c.Param("id"))
	h.reply(c, snap, err)
}

func (h *handlers) join(c *gin.Context) {
	snap, err := h.games.JoinGame(c.Request.Context(), c.Param("id"), c.GetHeader(PlayerHeader))
	h.reply(c, snap, err)
}

func (h *handlers) move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "code": game.CodeInvalidArgument})
		return
	}
	snap, err := h.games.MakeMove(c.Request.Context(), c.Param("id"), c.GetHeader(PlayerHeader), req.Move)
	h.reply(c, snap, err)
}

func (h *handlers) resign(c *gin.Context) {
	snap, err := h.games.ResignGame(c.Request.Context(), c.Param("id"), c.GetHeader(PlayerHeader))
	h.reply(c, snap, err)
}

func (h *handlers) abort(c *gin.Context) {
	snap, err := h.games.AbortGame(c.Request.Context(), c.Param("id"), c.GetHeader(PlayerHeader))
	h.reply(c, snap, err)
}

func (h *handlers) reply(c *gin.Context, snap game.Snapshot, err error) {
	if err != nil {
		h.fail(c, snap, err)
		return
	}
	c.JSON(http.StatusOK, snap.View(h.now()))
}

// fail writes the error body. A flag-fall also carries the terminal state
// so the caller learns the result without a second request.
func (h *handlers) fail(c *gin.Context, snap game.Snapshot, err error) {
	code := game.CodeOf(err)
	body := gin.H{"error": err.Error(), "code": code}
	if errors.Is(err, game.ErrTimeout) && snap.GameID != "" {
		body["state"] = snap.View(h.now())
	}
	c.JSON(statusFor(code), body)
}

func statusFor(code game.Code) int {
	switch code {
	case game.CodeNotFound:
		return http.StatusNotFound
	case game.CodeInvalidArgument, game.CodeNotJoinable, game.CodeSelfJoin,
		game.CodeWrongTurn, game.CodeIllegalMove:
		return http.StatusBadRequest
	case game.CodeNotParticipant:
		return http.StatusForbidden
	case game.CodeNotStarted, game.CodeGameOver, game.CodeTimeout:
		return http.StatusConflict
	case game.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
