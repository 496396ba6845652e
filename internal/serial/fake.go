package serial

import (
	"errors"
	"time"
)

// FakePort is a test double that returns scripted lines.
type FakePort struct {
	// Script contains one entry per ReadLine call. An empty entry means the
	// call times out. Once exhausted, every call times out.
	Script []string

	// index tracks current position in Script
	index int

	// Reads counts ReadLine calls.
	Reads int

	// Timeouts records the timeout passed to each ReadLine call.
	Timeouts []time.Duration

	// Written contains every Write payload.
	Written [][]byte

	// Resets counts Reset calls (including failed ones).
	Resets int

	// ReadError, if set, will be returned by ReadLine.
	ReadError error

	// ResetError, if set, will be returned by Reset.
	ResetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePort creates a FakePort with the given script.
func NewFakePort(script ...string) *FakePort {
	return &FakePort{Script: script}
}

// ReadLine returns the next scripted line or ErrTimeout.
func (f *FakePort) ReadLine(timeout time.Duration) ([]byte, error) {
	f.Reads++
	f.Timeouts = append(f.Timeouts, timeout)
	if f.ReadError != nil {
		return nil, f.ReadError
	}
	if f.Closed {
		return nil, ErrClosed
	}
	if f.index >= len(f.Script) {
		return nil, ErrTimeout
	}
	line := f.Script[f.index]
	f.index++
	if line == "" {
		return nil, ErrTimeout
	}
	return []byte(line), nil
}

// Write records b.
func (f *FakePort) Write(b []byte) error {
	if f.Closed {
		return errors.New("fake port closed")
	}
	out := make([]byte, len(b))
	copy(out, b)
	f.Written = append(f.Written, out)
	return nil
}

// Reset counts the call and returns ResetError.
func (f *FakePort) Reset() error {
	f.Resets++
	return f.ResetError
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Remaining returns how many scripted entries have not been consumed.
func (f *FakePort) Remaining() int {
	return len(f.Script) - f.index
}
