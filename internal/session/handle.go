package session

import (
	"sync"

	"github.com/google/uuid"
)

// ID uniquely identifies a session (one client connection).
type ID string

// NewID returns a fresh random session ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Handle is the transport-neutral sink the runtime sends events to.
type Handle interface {
	// ID returns the unique session identifier.
	ID() ID

	// Send delivers an event asynchronously. Must never block.
	Send(evt Event)

	// Done returns a channel that closes when the session ends.
	Done() <-chan struct{}
}

// ChannelSession is a Handle backed by a buffered channel. Transports drain
// Events() from their writer goroutine.
type ChannelSession struct {
	id       ID
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based session handle.
// eventBufferSize controls how many events can be buffered before dropping.
func NewChannelSession(id ID, eventBufferSize int) *ChannelSession {
	if eventBufferSize < 1 {
		eventBufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *ChannelSession) ID() ID {
	return s.id
}

// Send queues an event. If the buffer is full the oldest event is dropped;
// a slow client loses frames, never the runtime's time.
func (s *ChannelSession) Send(evt Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- evt:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (s *ChannelSession) Events() <-chan Event {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

// Registry tracks live runtimes so a server can report on and stop them.
// Thread-safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[ID]*Runtime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		runtimes: make(map[ID]*Runtime),
	}
}

// Register adds a runtime to the registry.
func (r *Registry) Register(rt *Runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[rt.ID()] = rt
}

// Unregister removes a runtime from the registry.
func (r *Registry) Unregister(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runtimes, id)
}

// Count returns the number of registered runtimes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runtimes)
}

// DisconnectAll marks every registered session as disconnected.
func (r *Registry) DisconnectAll() {
	r.mu.RLock()
	all := make([]*Runtime, 0, len(r.runtimes))
	for _, rt := range r.runtimes {
		all = append(all, rt)
	}
	r.mu.RUnlock()

	for _, rt := range all {
		rt.Disconnect()
	}
}
