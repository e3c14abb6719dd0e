package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/vovakirdan/netsnake/internal/snake"
)

func TestChannelSessionDropsOldest(t *testing.T) {
	s := NewChannelSession("a", 2)

	s.Send(NoticeEvent{Text: "one"})
	s.Send(NoticeEvent{Text: "two"})
	s.Send(NoticeEvent{Text: "three"})

	got := drain(s)
	if len(got) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(got))
	}
	if got[0].(NoticeEvent).Text != "two" || got[1].(NoticeEvent).Text != "three" {
		t.Errorf("unexpected events after overflow: %#v", got)
	}
}

func TestChannelSessionClose(t *testing.T) {
	s := NewChannelSession("a", 4)
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("Done() not closed")
	}

	s.Send(NoticeEvent{Text: "late"})
	if got := drain(s); len(got) != 0 {
		t.Errorf("Send after Close delivered %d events", len(got))
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for range 100 {
		id := NewID()
		if id == "" {
			t.Fatal("empty ID")
		}
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	var runtimes []*Runtime
	for _, id := range []ID{"a", "b"} {
		state, err := snake.Initialize(openParams(10, 10), rand.New(rand.NewSource(1)), time.Now())
		if err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		rt := NewRuntime(id, state, NewChannelSession(id, 8), DefaultConfig())
		reg.Register(rt)
		runtimes = append(runtimes, rt)
	}

	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}
	reg.DisconnectAll()
	for _, rt := range runtimes {
		if rt.Snapshot().Connected {
			t.Errorf("runtime %s still connected after DisconnectAll()", rt.ID())
		}
	}

	reg.Unregister("a")
	reg.Unregister("missing")
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}
