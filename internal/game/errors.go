package game

import "errors"

// Code is a machine-readable error code surfaced to callers.
type Code string

const (
	CodeNotFound         Code = "not_found"
	CodeNotJoinable      Code = "not_joinable"
	CodeSelfJoin         Code = "self_join"
	CodeNotStarted       Code = "not_started"
	CodeNotParticipant   Code = "not_participant"
	CodeGameOver         Code = "game_over"
	CodeWrongTurn        Code = "wrong_turn"
	CodeIllegalMove      Code = "illegal_move"
	CodeTimeout          Code = "timeout"
	CodeStoreUnavailable Code = "store_unavailable"
	CodeInvalidArgument  Code = "invalid_argument"
	CodeInternal         Code = "internal"
)

// Error is the domain error type returned by session operations.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Internal message (for logs)
	Cause   error  // Wrapped underlying error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "game not found"}
	ErrNotJoinable      = &Error{Code: CodeNotJoinable, Message: "game is not available to join"}
	ErrSelfJoin         = &Error{Code: CodeSelfJoin, Message: "cannot join own game"}
	ErrNotStarted       = &Error{Code: CodeNotStarted, Message: "game has not started"}
	ErrNotParticipant   = &Error{Code: CodeNotParticipant, Message: "player is not seated in this game"}
	ErrGameOver         = &Error{Code: CodeGameOver, Message: "game is over"}
	ErrWrongTurn        = &Error{Code: CodeWrongTurn, Message: "not your turn"}
	ErrIllegalMove      = &Error{Code: CodeIllegalMove, Message: "illegal move"}
	ErrTimeout          = &Error{Code: CodeTimeout, Message: "flag fell"}
	ErrStoreUnavailable = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}
	ErrInvalidArgument  = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code from err, or CodeInternal if err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
