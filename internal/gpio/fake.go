package gpio

import (
	"sync"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// FakeActuator is a test double that records every applied state.
type FakeActuator struct {
	mu sync.Mutex

	// History holds every successfully applied state in order.
	History []logic.RelayState

	// ApplyError, if set, will be returned by Apply()
	ApplyError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeActuator creates an empty FakeActuator.
func NewFakeActuator() *FakeActuator {
	return &FakeActuator{}
}

// Apply records rs.
func (f *FakeActuator) Apply(rs logic.RelayState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyError != nil {
		return f.ApplyError
	}
	f.History = append(f.History, rs)
	return nil
}

// Close records an all-off state and marks the actuator closed.
func (f *FakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.History = append(f.History, logic.RelayOff)
	f.Closed = true
	return nil
}

// Last returns the most recently applied state.
// The bool is false when nothing has been applied.
func (f *FakeActuator) Last() (logic.RelayState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.History) == 0 {
		return logic.RelayState{}, false
	}
	return f.History[len(f.History)-1], true
}

// Applies returns the number of recorded states.
func (f *FakeActuator) Applies() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.History)
}
