package control

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/serial"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// Default cycle timing.
const (
	DefaultWait        = 10 * time.Second
	DefaultReadTimeout = time.Second
	DefaultPause       = 5 * time.Second
)

// Loop owns the transport, decoder, store and engine for the life of the process.
type Loop struct {
	Port     serial.Port
	Decoder  *decode.Decoder
	Store    store.Gateway
	Engine   *Engine
	Observer Observer

	Wait        time.Duration // telemetry wait window per cycle
	ReadTimeout time.Duration // length of one poll
	Pause       time.Duration // idle time between cycles

	// Sleep waits for d or until ctx is done. Injectable for tests.
	Sleep func(ctx context.Context, d time.Duration) error
	// Now returns the current time. Injectable for tests.
	Now func() time.Time
}

// CycleResult summarises one cycle.
type CycleResult struct {
	Polls     int
	Refreshes int
	Frame     bool
	Stored    bool
	ResetErr  error
	Last      Decision
}

// Run executes cycles until ctx is cancelled. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Cycle(ctx)
		if err := l.sleep(ctx, l.pause()); err != nil {
			return err
		}
	}
}

// Cycle waits for at most one frame, refreshing the engine on every empty
// poll, persists a valid reading and resets the transport.
func (l *Loop) Cycle(ctx context.Context) CycleResult {
	var res CycleResult
	obs := l.observer()
	l.Engine.BeginCycle()

	refresh := func() {
		d, _ := l.Engine.Refresh(ctx)
		res.Last = d
		res.Refreshes++
	}

	var line []byte
	for res.Polls < l.polls() && ctx.Err() == nil {
		res.Polls++
		b, err := l.Port.ReadLine(l.readTimeout())
		if err == nil {
			line = b
			break
		}
		if errors.Is(err, serial.ErrTimeout) {
			refresh()
			continue
		}
		log.Printf("serial: read failed: %v", err)
		obs.TransportFault(err)
		break
	}

	if line != nil {
		res.Frame = true
		res.Stored = l.ingest(ctx, line)
	}

	// A stored reading may change the Auto decision, so refresh after it too.
	if res.Refreshes == 0 || res.Stored {
		refresh()
	}

	if err := l.Port.Reset(); err != nil {
		log.Printf("serial: reset failed: %v", err)
		obs.TransportFault(err)
		res.ResetErr = err
	}

	obs.CycleDone(l.now())
	return res
}

// ingest decodes and persists one line. It reports whether a row was written.
func (l *Loop) ingest(ctx context.Context, line []byte) bool {
	obs := l.observer()
	obs.FrameReceived(l.now())

	r, err := l.Decoder.Decode(line)
	if err != nil {
		var de *decode.DecodeError
		if errors.As(err, &de) {
			obs.DecodeFailed(de)
		}
		log.Printf("decode: discarded frame: %v", err)
		return false
	}

	n, err := l.Store.InsertReading(ctx, r)
	if err != nil {
		log.Printf("store: %s failed: %v", store.OpInsertReading, err)
		obs.StoreFailed(store.OpInsertReading, err)
		return false
	}
	if n == 0 {
		log.Printf("store: %s reading not stored", r.Sensor)
		return false
	}
	obs.ReadingStored(r)
	return true
}

func (l *Loop) polls() int {
	n := int(l.wait() / l.readTimeout())
	if n < 1 {
		return 1
	}
	return n
}

func (l *Loop) wait() time.Duration {
	if l.Wait > 0 {
		return l.Wait
	}
	return DefaultWait
}

func (l *Loop) readTimeout() time.Duration {
	if l.ReadTimeout > 0 {
		return l.ReadTimeout
	}
	return DefaultReadTimeout
}

func (l *Loop) pause() time.Duration {
	if l.Pause > 0 {
		return l.Pause
	}
	return DefaultPause
}

func (l *Loop) observer() Observer {
	if l.Observer == nil {
		return NopObserver{}
	}
	return l.Observer
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) error {
	if l.Sleep != nil {
		return l.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
