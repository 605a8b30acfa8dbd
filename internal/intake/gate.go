// Package intake guards asynchronous quick-entry events (voice, text, photo
// capture) with an explicit state machine so each event is processed at most
// once per debounce window. It replaces the boolean-flag-with-side-channel
// pattern: ownership is a token, and only the token holder can advance or
// release the gate.
package intake

import (
	"errors"
	"sync"
	"time"
)

// State is the gate's position in the capture lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StateProcessing State = "processing"
)

var (
	// ErrBusy is returned when a capture is already in flight.
	ErrBusy = errors.New("intake: capture already in progress")

	// ErrNotOwner is returned when a token other than the current owner's
	// tries to advance or release the gate.
	ErrNotOwner = errors.New("intake: token does not own the gate")

	// ErrWrongState is returned for transitions the state machine does not
	// allow.
	ErrWrongState = errors.New("intake: transition not allowed in current state")
)

// Token proves ownership of an in-flight capture.
type Token struct {
	id uint64
}

// Gate is the single-owner capture gate. The zero value is not usable; use
// NewGate.
type Gate struct {
	mu       sync.Mutex
	state    State
	owner    uint64
	nextID   uint64
	window   time.Duration
	lastDone time.Time
	clock    func() time.Time
}

// NewGate creates a gate with the given debounce window. Triggers arriving
// within the window after a capture completes are rejected as repeats of the
// same user action.
func NewGate(window time.Duration) *Gate {
	return NewGateWithClock(window, time.Now)
}

// NewGateWithClock creates a gate with an injectable clock for deterministic
// testing.
func NewGateWithClock(window time.Duration, clock func() time.Time) *Gate {
	return &Gate{
		state:  StateIdle,
		window: window,
		clock:  clock,
	}
}

// State returns the gate's current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Begin attempts to start a capture. It fails with ErrBusy if a capture is
// in flight or if the debounce window since the last completion has not
// elapsed.
func (g *Gate) Begin() (Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateIdle {
		return Token{}, ErrBusy
	}
	if !g.lastDone.IsZero() && g.clock().Sub(g.lastDone) < g.window {
		return Token{}, ErrBusy
	}

	g.nextID++
	g.owner = g.nextID
	g.state = StateCapturing
	return Token{id: g.owner}, nil
}

// StartProcessing moves the owner's capture from capturing to processing.
func (g *Gate) StartProcessing(t Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateCapturing {
		return ErrWrongState
	}
	if t.id != g.owner {
		return ErrNotOwner
	}
	g.state = StateProcessing
	return nil
}

// Finish releases the gate. It is valid from either capturing (abandoned
// capture) or processing (completed) and starts the debounce window.
func (g *Gate) Finish(t Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateIdle {
		return ErrWrongState
	}
	if t.id != g.owner {
		return ErrNotOwner
	}
	g.state = StateIdle
	g.owner = 0
	g.lastDone = g.clock()
	return nil
}
