package rules

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"example.com/timed_chess_server/internal/game"
)

// Chess is an Engine for standard chess. Positions are FEN strings and moves
// are accepted in UCI ("e2e4") or SAN ("e4", "Nf3", "O-O"); the canonical
// form returned in Outcome.Move is UCI.
type Chess struct{}

func NewChess() Chess { return Chess{} }

func (Chess) Initial() string {
	return chess.NewGame().Position().String()
}

func (Chess) Turn(position string) (game.Side, error) {
	g, err := load(position)
	if err != nil {
		return "", err
	}
	return side(g.Position().Turn()), nil
}

func (Chess) Apply(position, move string) (Outcome, error) {
	g, err := load(position)
	if err != nil {
		return Outcome{}, err
	}
	move = strings.TrimSpace(move)
	if move == "" {
		return Outcome{}, ErrIllegalMove
	}

	pos := g.Position()
	var chosen *chess.Move
	for _, m := range pos.ValidMoves() {
		if (chess.UCINotation{}).Encode(pos, m) == move || sameSAN((chess.AlgebraicNotation{}).Encode(pos, m), move) {
			chosen = m
			break
		}
	}
	if chosen == nil {
		return Outcome{}, ErrIllegalMove
	}
	uci := (chess.UCINotation{}).Encode(pos, chosen)
	if err := g.Move(chosen); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	out := Outcome{Position: g.Position().String(), Move: uci}
	if g.Outcome() != chess.NoOutcome {
		switch g.Method() {
		case chess.Checkmate:
			out.Terminal = Checkmate
		case chess.Stalemate:
			out.Terminal = Stalemate
		default:
			out.Terminal = Draw
		}
	}
	return out, nil
}

func load(position string) (*chess.Game, error) {
	opt, err := chess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("parse position: %w", err)
	}
	return chess.NewGame(opt), nil
}

// sameSAN compares SAN strings ignoring check and mate suffixes.
func sameSAN(a, b string) bool {
	trim := func(s string) string { return strings.TrimRight(s, "+#") }
	return trim(a) == trim(b)
}

func side(c chess.Color) game.Side {
	if c == chess.Black {
		return game.Black
	}
	return game.White
}
