package session

import (
	"time"

	"github.com/vovakirdan/netsnake/internal/snake"
)

// EndReason describes why a session ended.
type EndReason int

const (
	EndNone EndReason = iota
	EndCollision
	EndTimeUp
	EndQuit
	EndDisconnect
)

// String returns a human-readable name for the end reason.
func (r EndReason) String() string {
	switch r {
	case EndNone:
		return "none"
	case EndCollision:
		return "collision"
	case EndTimeUp:
		return "time up"
	case EndQuit:
		return "quit"
	case EndDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a finished session.
type Result struct {
	SessionID ID
	Reason    EndReason
	Cause     snake.Cause // set when Reason is EndCollision
	Fruits    int
	Length    int
	Elapsed   time.Duration // active play time, pauses excluded
	Ticks     uint64

	Width     int
	Height    int
	Mode      snake.Mode
	World     snake.WorldType
	TimeLimit time.Duration
}

// Describe is the short reason shown in the final summary.
func (r Result) Describe() string {
	if r.Reason == EndCollision {
		return r.Cause.String()
	}
	return r.Reason.String()
}

// Summary is the plain-text game-over message for the client.
func (r Result) Summary() string {
	return snake.FinalSummary(r.Fruits, r.Elapsed, r.Describe())
}

// ResultSaver persists finished sessions.
// This allows the server to save results without depending on the storage package.
type ResultSaver interface {
	SaveResult(result Result) error
}
