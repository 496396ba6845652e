package control

import (
	"context"
	"sync"
	"time"

	"github.com/sweeney/swamp-cooler/internal/decode"
	"github.com/sweeney/swamp-cooler/internal/gpio"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/policy"
	"github.com/sweeney/swamp-cooler/internal/serial"
	"github.com/sweeney/swamp-cooler/internal/store"
)

const (
	homeID = "0013a200Ac21216"
	roofID = "0013a200Ac1f102"

	homeFrame = `{'cluster': b'\x00\x11', 'sender_eui64': b'\x00\x13\xa2\x00A\xc2\x12\x16', 'payload': b'{"Temperature": 78.5, "Humidity": 30.0}', 'is_broadcast': False}`
	roofFrame = `{'sender_eui64': b'\x00\x13\xa2\x00A\xc1\xf1\x02', 'payload': {'Temperature': 101.2, 'Humidity': 12.5}}`
)

var t0 = time.Date(2026, 7, 4, 15, 0, 0, 0, time.UTC)

// recorder is an Observer that keeps everything it sees.
type recorder struct {
	mu          sync.Mutex
	frames      int
	stored      []logic.Reading
	decodeFails []*decode.DecodeError
	storeFails  []store.Op
	faults      []error
	written     []logic.Setting
	decisions   []Decision
	cycles      int
}

func (r *recorder) FrameReceived(time.Time) {
	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
}

func (r *recorder) ReadingStored(rd logic.Reading) {
	r.mu.Lock()
	r.stored = append(r.stored, rd)
	r.mu.Unlock()
}

func (r *recorder) DecodeFailed(err *decode.DecodeError) {
	r.mu.Lock()
	r.decodeFails = append(r.decodeFails, err)
	r.mu.Unlock()
}

func (r *recorder) StoreFailed(op store.Op, _ error) {
	r.mu.Lock()
	r.storeFails = append(r.storeFails, op)
	r.mu.Unlock()
}

func (r *recorder) TransportFault(err error) {
	r.mu.Lock()
	r.faults = append(r.faults, err)
	r.mu.Unlock()
}

func (r *recorder) SettingWritten(s logic.Setting) {
	r.mu.Lock()
	r.written = append(r.written, s)
	r.mu.Unlock()
}

func (r *recorder) Evaluated(d Decision, _ time.Time) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()
}

func (r *recorder) CycleDone(time.Time) {
	r.mu.Lock()
	r.cycles++
	r.mu.Unlock()
}

type harness struct {
	port   *serial.FakePort
	store  *store.FakeStore
	act    *gpio.FakeActuator
	policy *policy.Stub
	obs    *recorder
	engine *Engine
	loop   *Loop
}

func newHarness(initial logic.Setting, script ...string) *harness {
	h := &harness{
		port:   serial.NewFakePort(script...),
		store:  store.NewFakeStore(initial),
		act:    gpio.NewFakeActuator(),
		policy: &policy.Stub{Label: logic.LabelOff},
		obs:    &recorder{},
	}
	h.engine = NewEngine(h.store, h.policy, h.act, h.obs)
	h.engine.now = func() time.Time { return t0 }
	h.loop = &Loop{
		Port: h.port,
		Decoder: decode.NewDecoder(map[logic.Role]string{
			logic.RoleHome: homeID,
			logic.RoleRoof: roofID,
		}, func() time.Time { return t0 }),
		Store:       h.store,
		Engine:      h.engine,
		Observer:    h.obs,
		Wait:        10 * time.Second,
		ReadTimeout: time.Second,
		Pause:       5 * time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		Now:         func() time.Time { return t0 },
	}
	return h
}

func manual(l logic.Label) logic.Setting {
	return logic.Setting{Mode: logic.ModeManual, Label: l, DesiredTemperature: 72}
}

func auto(l logic.Label, desired float64) logic.Setting {
	return logic.Setting{Mode: logic.ModeAuto, Label: l, DesiredTemperature: desired}
}
