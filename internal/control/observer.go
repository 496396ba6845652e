// Package control runs the telemetry ingestion and relay decision cycle.
package control

import (
	"time"

	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// Observer receives cycle outcomes. All calls happen on the control goroutine
// and must not block.
type Observer interface {
	FrameReceived(now time.Time)
	ReadingStored(r logic.Reading)
	DecodeFailed(err *decode.DecodeError)
	StoreFailed(op store.Op, err error)
	TransportFault(err error)
	SettingWritten(s logic.Setting)
	Evaluated(d Decision, now time.Time)
	CycleDone(now time.Time)
}

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) FrameReceived(time.Time)          {}
func (NopObserver) ReadingStored(logic.Reading)      {}
func (NopObserver) DecodeFailed(*decode.DecodeError) {}
func (NopObserver) StoreFailed(store.Op, error)      {}
func (NopObserver) TransportFault(error)             {}
func (NopObserver) SettingWritten(logic.Setting)     {}
func (NopObserver) Evaluated(Decision, time.Time)    {}
func (NopObserver) CycleDone(time.Time)              {}

// Observers fans out to each element in order.
type Observers []Observer

func (obs Observers) FrameReceived(now time.Time) {
	for _, o := range obs {
		o.FrameReceived(now)
	}
}

func (obs Observers) ReadingStored(r logic.Reading) {
	for _, o := range obs {
		o.ReadingStored(r)
	}
}

func (obs Observers) DecodeFailed(err *decode.DecodeError) {
	for _, o := range obs {
		o.DecodeFailed(err)
	}
}

func (obs Observers) StoreFailed(op store.Op, err error) {
	for _, o := range obs {
		o.StoreFailed(op, err)
	}
}

func (obs Observers) TransportFault(err error) {
	for _, o := range obs {
		o.TransportFault(err)
	}
}

func (obs Observers) SettingWritten(s logic.Setting) {
	for _, o := range obs {
		o.SettingWritten(s)
	}
}

func (obs Observers) Evaluated(d Decision, now time.Time) {
	for _, o := range obs {
		o.Evaluated(d, now)
	}
}

func (obs Observers) CycleDone(now time.Time) {
	for _, o := range obs {
		o.CycleDone(now)
	}
}
