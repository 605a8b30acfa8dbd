package intake

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestGateLifecycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(time.Second, fixedClock(&now))

	if gate.State() != StateIdle {
		t.Fatalf("initial state = %s, expected idle", gate.State())
	}

	token, err := gate.Begin()
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if gate.State() != StateCapturing {
		t.Errorf("state = %s, expected capturing", gate.State())
	}

	if err := gate.StartProcessing(token); err != nil {
		t.Fatalf("StartProcessing() error = %v", err)
	}
	if gate.State() != StateProcessing {
		t.Errorf("state = %s, expected processing", gate.State())
	}

	if err := gate.Finish(token); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if gate.State() != StateIdle {
		t.Errorf("state = %s, expected idle after finish", gate.State())
	}
}

func TestGateRejectsConcurrentCapture(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(time.Second, fixedClock(&now))

	if _, err := gate.Begin(); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := gate.Begin(); err != ErrBusy {
		t.Errorf("second Begin() error = %v, expected ErrBusy", err)
	}
}

func TestGateDebounceWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(time.Second, fixedClock(&now))

	token, _ := gate.Begin()
	if err := gate.Finish(token); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	// A retrigger inside the window is treated as a repeat of the same event.
	now = now.Add(500 * time.Millisecond)
	if _, err := gate.Begin(); err != ErrBusy {
		t.Errorf("Begin() inside debounce window error = %v, expected ErrBusy", err)
	}

	now = now.Add(600 * time.Millisecond)
	if _, err := gate.Begin(); err != nil {
		t.Errorf("Begin() after debounce window error = %v", err)
	}
}

func TestGateOwnershipToken(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(0, fixedClock(&now))

	token, _ := gate.Begin()
	stale := Token{}

	if err := gate.StartProcessing(stale); err != ErrNotOwner {
		t.Errorf("StartProcessing(stale) error = %v, expected ErrNotOwner", err)
	}
	if err := gate.Finish(stale); err != ErrNotOwner {
		t.Errorf("Finish(stale) error = %v, expected ErrNotOwner", err)
	}
	if err := gate.Finish(token); err != nil {
		t.Errorf("Finish(owner) error = %v", err)
	}
	if err := gate.Finish(token); err != ErrWrongState {
		t.Errorf("Finish() on idle gate error = %v, expected ErrWrongState", err)
	}
}

func TestGateAtMostOneOwnerUnderContention(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(time.Minute, fixedClock(&now))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gate.Begin(); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("winners = %d, expected exactly 1 owner", winners)
	}
}
