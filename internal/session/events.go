package session

import "github.com/vovakirdan/netsnake/internal/snake"

// Event is something the runtime wants delivered to the connected client.
type Event interface {
	sessionEvent()
}

// SnapshotEvent carries the rendered grid after a tick.
type SnapshotEvent struct {
	Tick     uint64
	Frame    string // grid rows plus status line
	Snapshot snake.Snapshot
}

func (SnapshotEvent) sessionEvent() {}

// NoticeKind identifies a one-off status notice.
type NoticeKind int

const (
	NoticePaused NoticeKind = iota
	NoticeResuming
)

func (k NoticeKind) String() string {
	switch k {
	case NoticePaused:
		return "paused"
	case NoticeResuming:
		return "resuming"
	default:
		return "unknown"
	}
}

// NoticeEvent is emitted once per pause and once per resume.
type NoticeEvent struct {
	Kind NoticeKind
	Text string
}

func (NoticeEvent) sessionEvent() {}

// GameOverEvent is the last event of a session that ended on its own terms
// (death, time up, quit). It is not sent for disconnects.
type GameOverEvent struct {
	Result  Result
	Summary string
}

func (GameOverEvent) sessionEvent() {}
