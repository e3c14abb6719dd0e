// Package session runs one authoritative game per connected client. A Runtime
// owns the GameState behind a mutex, advances it on a timer and pushes events
// to a transport-neutral Handle.
package session

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/netsnake/internal/core"
	"github.com/vovakirdan/netsnake/internal/snake"
)

// Config holds the runtime timing.
type Config struct {
	TickInterval time.Duration // time between simulation steps
	PausePoll    time.Duration // how often a paused loop re-checks its state
	ResumeGrace  time.Duration // delay before the first step after resume
}

// DefaultConfig returns the classic timing: one step every two seconds,
// a one second pause poll and a three second grace period after resume.
func DefaultConfig() Config {
	return Config{
		TickInterval: 2 * time.Second,
		PausePoll:    time.Second,
		ResumeGrace:  3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.PausePoll <= 0 {
		c.PausePoll = def.PausePoll
	}
	if c.ResumeGrace < 0 {
		c.ResumeGrace = def.ResumeGrace
	}
	return c
}

// Runtime drives a single game session.
type Runtime struct {
	id     ID
	cfg    Config
	handle Handle
	clock  Clock
	logger *log.Logger

	mu            sync.Mutex
	state         *snake.GameState
	rng           *rand.Rand // guarded by mu
	tick          uint64
	nextStepAt    time.Time
	resumePending bool
	noticeSent    bool
	quit          bool
	ended         bool
	result        Result

	wake     chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// NewRuntime creates a runtime for an initialized game state. The first step
// happens one tick interval after the state's start time.
func NewRuntime(id ID, state *snake.GameState, handle Handle, cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	return &Runtime{
		id:         id,
		cfg:        cfg,
		handle:     handle,
		clock:      SystemClock,
		logger:     log.New(io.Discard),
		state:      state,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // gameplay randomness
		nextStepAt: state.StartTime.Add(cfg.TickInterval),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// SetClock replaces the time source. Must be called before Run.
func (r *Runtime) SetClock(c Clock) {
	r.clock = c
}

// SetLogger sets the logger used for lifecycle messages.
func (r *Runtime) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// SetRand replaces the random source used for fruit placement.
func (r *Runtime) SetRand(rng *rand.Rand) {
	r.mu.Lock()
	r.rng = rng
	r.mu.Unlock()
}

// ID returns the session identifier.
func (r *Runtime) ID() ID {
	return r.id
}

// Done closes when Run has returned.
func (r *Runtime) Done() <-chan struct{} {
	return r.done
}

// SetDirection requests a new heading for the next step. Reversals and
// unknown codes are ignored.
func (r *Runtime) SetDirection(d core.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snake.ChangeDirection(&r.state.Snake, d)
}

// Pause stops the simulation and starts accounting paused time.
// Returns false if the game was already paused or has ended.
func (r *Runtime) Pause() bool {
	r.mu.Lock()
	ok := !r.ended && r.state.Pause.Begin(r.clock.Now())
	r.mu.Unlock()
	if ok {
		r.signal()
	}
	return ok
}

// Resume ends the current pause. The paused interval is added to the
// accumulated total immediately and the next step waits for the grace period.
// Returns false if the game was not paused.
func (r *Runtime) Resume() bool {
	r.mu.Lock()
	var ok bool
	if !r.ended {
		_, ok = r.state.Pause.End(r.clock.Now())
		if ok {
			r.resumePending = true
		}
	}
	r.mu.Unlock()
	if ok {
		r.signal()
	}
	return ok
}

// Quit ends the game at the player's request. A final summary is sent.
func (r *Runtime) Quit() {
	r.mu.Lock()
	r.state.Player.Connected = false
	r.quit = true
	r.mu.Unlock()
	r.signal()
}

// Disconnect ends the game because the client went away. Safe to call
// multiple times and after the game has ended.
func (r *Runtime) Disconnect() {
	r.mu.Lock()
	r.state.Player.Connected = false
	r.mu.Unlock()
	r.signal()
}

// Snapshot returns a copy of the current state.
func (r *Runtime) Snapshot() snake.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot(r.clock.Now())
}

// Result returns the outcome. Zero until the game has ended.
func (r *Runtime) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Runtime) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run executes the session loop until the game ends, the client disconnects
// or ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) Result {
	defer r.doneOnce.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	first := SnapshotEvent{
		Tick:     r.tick,
		Frame:    snake.Render(r.state, r.clock.Now()),
		Snapshot: r.state.Snapshot(r.clock.Now()),
	}
	r.mu.Unlock()
	r.handle.Send(first)

	handleDone := r.handle.Done()

	wait, done := r.step(r.clock.Now())
	for !done {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-r.wake:
		case <-handleDone:
			handleDone = nil
			r.Disconnect()
		case <-ctx.Done():
			r.Disconnect()
		}
		timer.Stop()
		wait, done = r.step(r.clock.Now())
	}
	return r.Result()
}

// step runs one iteration at now and delivers its events outside the lock.
// It returns how long to wait before the next iteration and whether the
// session is over.
func (r *Runtime) step(now time.Time) (time.Duration, bool) {
	events, wait, done := r.advance(now)
	for _, evt := range events {
		r.handle.Send(evt)
	}
	return wait, done
}

func (r *Runtime) advance(now time.Time) ([]Event, time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state
	if r.ended {
		return nil, 0, true
	}

	if !st.Player.Connected {
		if r.quit {
			r.finish(now, EndQuit, snake.CauseNone)
			return []Event{r.gameOver()}, 0, true
		}
		r.finish(now, EndDisconnect, snake.CauseNone)
		return nil, 0, true
	}

	var events []Event

	if st.Pause.Paused {
		if !r.noticeSent {
			r.noticeSent = true
			r.logger.Info("game paused")
			events = append(events, NoticeEvent{Kind: NoticePaused, Text: "Game paused\n"})
		}
		return events, r.cfg.PausePoll, false
	}

	if r.resumePending {
		r.resumePending = false
		r.noticeSent = false
		r.nextStepAt = now.Add(r.cfg.ResumeGrace)
		r.logger.Info("game resuming", "grace", r.cfg.ResumeGrace)
		events = append(events, NoticeEvent{
			Kind: NoticeResuming,
			Text: "Resuming in " + r.cfg.ResumeGrace.String() + "\n",
		})
	}

	if now.Before(r.nextStepAt) {
		return events, r.nextStepAt.Sub(now), false
	}

	if st.TimeUp(now) {
		st.Snake.Alive = false
		r.finish(now, EndTimeUp, snake.CauseNone)
		return append(events, r.gameOver()), 0, true
	}

	res := snake.Step(st, r.rng)
	r.tick++
	r.nextStepAt = now.Add(r.cfg.TickInterval)
	events = append(events, SnapshotEvent{
		Tick:     r.tick,
		Frame:    snake.Render(st, now),
		Snapshot: st.Snapshot(now),
	})

	if res.Died {
		r.finish(now, EndCollision, res.Cause)
		return append(events, r.gameOver()), 0, true
	}

	return events, r.cfg.TickInterval, false
}

// finish records the result. Caller holds mu.
func (r *Runtime) finish(now time.Time, reason EndReason, cause snake.Cause) {
	st := r.state
	r.ended = true
	r.result = Result{
		SessionID: r.id,
		Reason:    reason,
		Cause:     cause,
		Fruits:    st.FruitsEaten(),
		Length:    st.Snake.Len(),
		Elapsed:   st.ActiveElapsed(now),
		Ticks:     r.tick,
		Width:     st.World.Width,
		Height:    st.World.Height,
		Mode:      st.Mode,
		World:     st.World.Type,
		TimeLimit: st.TimeLimit,
	}
	r.logger.Info("game over",
		"reason", r.result.Describe(),
		"fruits", r.result.Fruits,
		"elapsed", r.result.Elapsed.Truncate(time.Second),
	)
}

// gameOver builds the final event. Caller holds mu.
func (r *Runtime) gameOver() Event {
	return GameOverEvent{Result: r.result, Summary: r.result.Summary()}
}
