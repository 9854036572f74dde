// Package game holds the domain types shared by the session core, the
// stores and the transports: sides, statuses, results, snapshots and the
// persisted record layout.
package game

import (
	"slices"
	"time"
)

type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Terminal reports whether no further mutation is accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

type Result string

const (
	ResultOngoing   Result = "ongoing"
	ResultWhiteWins Result = "white_wins"
	ResultBlackWins Result = "black_wins"
	ResultDraw      Result = "draw"
)

// WinFor returns the result crediting side.
func WinFor(side Side) Result {
	if side == White {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

// Winner returns the winning side, or "" for a draw or an ongoing game.
func (r Result) Winner() Side {
	switch r {
	case ResultWhiteWins:
		return White
	case ResultBlackWins:
		return Black
	}
	return ""
}

// Reason explains why a game ended.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonCheckmate   Reason = "checkmate"
	ReasonStalemate   Reason = "stalemate"
	ReasonDraw        Reason = "draw"
	ReasonTimeout     Reason = "timeout"
	ReasonResignation Reason = "resignation"
	ReasonAborted     Reason = "aborted"
)

// Snapshot is a value copy of a session's authoritative state.
type Snapshot struct {
	GameID         string
	WhitePlayerID  string
	BlackPlayerID  string
	Position       string
	Moves          []string
	Status         Status
	Result         Result
	Reason         Reason
	Turn           Side
	TimeControl    time.Duration
	WhiteRemaining time.Duration
	BlackRemaining time.Duration
	LastTickAt     time.Time
	Sequence       int64
}

// Clone returns a deep copy; the move list is not shared.
func (s Snapshot) Clone() Snapshot {
	s.Moves = slices.Clone(s.Moves)
	return s
}

// Remaining returns the stored budget for side.
func (s Snapshot) Remaining(side Side) time.Duration {
	if side == White {
		return s.WhiteRemaining
	}
	return s.BlackRemaining
}

// SetRemaining replaces the stored budget for side.
func (s *Snapshot) SetRemaining(side Side, d time.Duration) {
	if side == White {
		s.WhiteRemaining = d
		return
	}
	s.BlackRemaining = d
}

// PlayerID returns who is seated on side; "" if the seat is empty.
func (s Snapshot) PlayerID(side Side) string {
	if side == White {
		return s.WhitePlayerID
	}
	return s.BlackPlayerID
}

// PlayerSide returns the side playerID is seated on.
func (s Snapshot) PlayerSide(playerID string) (Side, bool) {
	switch {
	case playerID == "":
		return "", false
	case playerID == s.WhitePlayerID:
		return White, true
	case playerID == s.BlackPlayerID:
		return Black, true
	}
	return "", false
}

// Record is the persisted subset of a session.
type Record struct {
	GameID               string   `json:"gameId" yaml:"gameId"`
	WhitePlayerID        string   `json:"whitePlayerId" yaml:"whitePlayerId"`
	BlackPlayerID        string   `json:"blackPlayerId,omitempty" yaml:"blackPlayerId,omitempty"`
	Position             string   `json:"position" yaml:"position"`
	Moves                []string `json:"moves" yaml:"moves"`
	Status               Status   `json:"status" yaml:"status"`
	Result               Result   `json:"result" yaml:"result"`
	Reason               Reason   `json:"reason,omitempty" yaml:"reason,omitempty"`
	TimeControlMillis    int64    `json:"timeControlMillis" yaml:"timeControlMillis"`
	WhiteRemainingMillis int64    `json:"whiteRemainingMillis" yaml:"whiteRemainingMillis"`
	BlackRemainingMillis int64    `json:"blackRemainingMillis" yaml:"blackRemainingMillis"`
	Sequence             int64    `json:"sequence" yaml:"sequence"`
}

// Record converts the snapshot into its persisted form.
func (s Snapshot) Record() Record {
	return Record{
		GameID:               s.GameID,
		WhitePlayerID:        s.WhitePlayerID,
		BlackPlayerID:        s.BlackPlayerID,
		Position:             s.Position,
		Moves:                slices.Clone(s.Moves),
		Status:               s.Status,
		Result:               s.Result,
		Reason:               s.Reason,
		TimeControlMillis:    s.TimeControl.Milliseconds(),
		WhiteRemainingMillis: s.WhiteRemaining.Milliseconds(),
		BlackRemainingMillis: s.BlackRemaining.Milliseconds(),
		Sequence:             s.Sequence,
	}
}

// Snapshot rebuilds a snapshot from a record. Turn and LastTickAt are not
// persisted; the caller supplies them.
func (r Record) Snapshot(turn Side, lastTickAt time.Time) Snapshot {
	return Snapshot{
		GameID:         r.GameID,
		WhitePlayerID:  r.WhitePlayerID,
		BlackPlayerID:  r.BlackPlayerID,
		Position:       r.Position,
		Moves:          slices.Clone(r.Moves),
		Status:         r.Status,
		Result:         r.Result,
		Reason:         r.Reason,
		Turn:           turn,
		TimeControl:    time.Duration(r.TimeControlMillis) * time.Millisecond,
		WhiteRemaining: time.Duration(r.WhiteRemainingMillis) * time.Millisecond,
		BlackRemaining: time.Duration(r.BlackRemainingMillis) * time.Millisecond,
		LastTickAt:     lastTickAt,
		Sequence:       r.Sequence,
	}
}
