package events

import (
	"sync"
	"testing"
)

// TestListenAndNotify verifies every registered listener receives each
// notified value.
func TestListenAndNotify(t *testing.T) {
	e := NewCallbackEvent[int](false)

	var a, b []int
	e.Listen(func(v int) { a = append(a, v) })
	e.Listen(func(v int) { b = append(b, v) })

	e.Notify(1)
	e.Notify(2)

	if len(a) != 2 || a[0] != 1 || a[1] != 2 {
		t.Errorf("listener a got %v, want [1 2]", a)
	}
	if len(b) != 2 {
		t.Errorf("listener b got %v, want [1 2]", b)
	}
}

// TestUnsubscribeStopsDelivery verifies the deregistration function
// removes the listener.
func TestUnsubscribeStopsDelivery(t *testing.T) {
	e := NewCallbackEvent[string](false)

	var got []string
	cancel := e.Listen(func(v string) { got = append(got, v) })

	e.Notify("first")
	cancel()
	e.Notify("second")

	if len(got) != 1 || got[0] != "first" {
		t.Errorf("got %v, want [first]", got)
	}
	if e.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", e.ListenerCount())
	}
}

// TestReplayLast verifies a late listener immediately receives the most
// recent value when replay is enabled, and nothing when it is not.
func TestReplayLast(t *testing.T) {
	replay := NewCallbackEvent[int](true)
	replay.Notify(7)

	var got []int
	replay.Listen(func(v int) { got = append(got, v) })
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("replayed %v, want [7]", got)
	}

	plain := NewCallbackEvent[int](false)
	plain.Notify(7)
	var none []int
	plain.Listen(func(v int) { none = append(none, v) })
	if len(none) != 0 {
		t.Errorf("replay disabled but got %v", none)
	}
}

// TestReplayBeforeAnyNotify verifies subscribing before the first
// Notify delivers nothing.
func TestReplayBeforeAnyNotify(t *testing.T) {
	e := NewCallbackEvent[int](true)
	called := false
	e.Listen(func(int) { called = true })
	if called {
		t.Error("listener called before any Notify")
	}
}

// TestConcurrentNotify verifies concurrent publishers and subscribers
// do not race.
func TestConcurrentNotify(t *testing.T) {
	e := NewCallbackEvent[int](true)

	var mu sync.Mutex
	total := 0
	e.Listen(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.Notify(1)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if total != 1000 {
		t.Errorf("total = %d, want 1000", total)
	}
}
