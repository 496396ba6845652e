package serial

import (
	"errors"
	"testing"
	"time"
)

func TestFakePortScript(t *testing.T) {
	f := NewFakePort("one", "", "two")

	line, err := f.ReadLine(time.Second)
	if err != nil || string(line) != "one" {
		t.Fatalf("read 0: got %q, %v", line, err)
	}

	if _, err := f.ReadLine(time.Second); !errors.Is(err, ErrTimeout) {
		t.Fatalf("read 1: expected ErrTimeout, got %v", err)
	}

	line, err = f.ReadLine(time.Second)
	if err != nil || string(line) != "two" {
		t.Fatalf("read 2: got %q, %v", line, err)
	}

	// exhausted script keeps timing out
	if _, err := f.ReadLine(time.Second); !errors.Is(err, ErrTimeout) {
		t.Fatalf("read 3: expected ErrTimeout, got %v", err)
	}
	if f.Reads != 4 {
		t.Errorf("reads: got %d, want 4", f.Reads)
	}
	if f.Remaining() != 0 {
		t.Errorf("remaining: got %d, want 0", f.Remaining())
	}
}

func TestFakePortErrors(t *testing.T) {
	f := NewFakePort("one")
	f.ReadError = errors.New("simulated error")
	if _, err := f.ReadLine(time.Second); err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}

	f.ResetError = errors.New("reset failed")
	if err := f.Reset(); err == nil {
		t.Error("expected reset error")
	}
	if f.Resets != 1 {
		t.Errorf("resets: got %d, want 1", f.Resets)
	}
}

func TestFakePortWriteAndClose(t *testing.T) {
	f := NewFakePort()
	if err := f.Write([]byte("ATND\r")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(f.Written) != 1 || string(f.Written[0]) != "ATND\r" {
		t.Errorf("written: got %q", f.Written)
	}

	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
	if err := f.Write([]byte("x")); err == nil {
		t.Error("expected error writing to closed port")
	}
	if _, err := f.ReadLine(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
