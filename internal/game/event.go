package game

import (
	"time"

	"example.com/timed_chess_server/internal/clock"
)

// EventType names a broadcast event.
type EventType string

const (
	EventState    EventType = "state"
	EventJoined   EventType = "joined"
	EventMoveMade EventType = "move_made"
	EventGameOver EventType = "game_over"
)

// Event is one state change delivered to a game's room.
type Event struct {
	Type     EventType
	Sequence int64
	Move     string
	Snapshot Snapshot
}

// NewEvent stamps an event with the snapshot's sequence.
func NewEvent(t EventType, snap Snapshot) Event {
	return Event{Type: t, Sequence: snap.Sequence, Snapshot: snap.Clone()}
}

// View is the wire shape of a snapshot.
type View struct {
	GameID               string   `json:"gameId"`
	WhitePlayerID        string   `json:"whitePlayerId"`
	BlackPlayerID        string   `json:"blackPlayerId,omitempty"`
	Position             string   `json:"position"`
	Moves                []string `json:"moves"`
	Status               Status   `json:"status"`
	Result               Result   `json:"result"`
	Reason               Reason   `json:"reason,omitempty"`
	Winner               Side     `json:"winner,omitempty"`
	Turn                 Side     `json:"turn"`
	TimeControlMillis    int64    `json:"timeControlMillis"`
	WhiteRemainingMillis int64    `json:"whiteRemainingMillis"`
	BlackRemainingMillis int64    `json:"blackRemainingMillis"`
	Sequence             int64    `json:"sequence"`
}

// View renders the snapshot as seen at now: the running clock is shown with
// the time elapsed since LastTickAt already deducted.
func (s Snapshot) View(now time.Time) View {
	white, black := s.WhiteRemaining, s.BlackRemaining
	if s.Status == StatusActive {
		if s.Turn == White {
			white, _ = clock.Charge(white, s.LastTickAt, now)
		} else {
			black, _ = clock.Charge(black, s.LastTickAt, now)
		}
	}
	moves := s.Moves
	if moves == nil {
		moves = []string{}
	}
	return View{
		GameID:               s.GameID,
		WhitePlayerID:        s.WhitePlayerID,
		BlackPlayerID:        s.BlackPlayerID,
		Position:             s.Position,
		Moves:                moves,
		Status:               s.Status,
		Result:               s.Result,
		Reason:               s.Reason,
		Winner:               s.Result.Winner(),
		Turn:                 s.Turn,
		TimeControlMillis:    s.TimeControl.Milliseconds(),
		WhiteRemainingMillis: white.Milliseconds(),
		BlackRemainingMillis: black.Milliseconds(),
		Sequence:             s.Sequence,
	}
}
