// Package rules is the boundary to the game rules. The session core treats a
// position as an opaque string and asks the Engine to apply one ply to it.
package rules

import (
	"errors"

	"example.com/timed_chess_server/internal/game"
)

// ErrIllegalMove is returned by Apply when the move is not legal in position.
var ErrIllegalMove = errors.New("illegal move")

// Terminal classifies a position in which the game is over.
type Terminal int

const (
	NotTerminal Terminal = iota
	Checkmate
	Stalemate
	Draw
)

// Outcome is the result of applying one ply.
type Outcome struct {
	Position string   // position after the ply
	Move     string   // the ply in canonical notation
	Terminal Terminal // NotTerminal if play continues
}

// Engine applies single plies to positions. Implementations must be
// deterministic and free of side effects.
type Engine interface {
	Initial() string
	Turn(position string) (game.Side, error)
	Apply(position, move string) (Outcome, error)
}
