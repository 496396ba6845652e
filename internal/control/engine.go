package control

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sweeney/swamp-cooler/internal/gpio"
	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/policy"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Setting    logic.Setting    // setting the decision was made from
	Label      logic.Label      // label actually applied
	Relay      logic.RelayState // levels actually applied
	Persisted  bool             // a new Auto setting was written
	FailClosed bool             // no concrete label could be resolved
	Reason     string           // why the decision failed closed
	Roof       *logic.Reading   // inputs consulted in Auto mode
	Home       *logic.Reading
}

// cycleCache holds what was fetched during the current cycle. It is the
// fallback when a later fetch in the same cycle fails.
type cycleCache struct {
	setting  *logic.Setting
	roof     *logic.Reading
	home     *logic.Reading
	house    *logic.HouseParameters
	forecast []float64
}

// Engine resolves the current setting into relay levels and applies them.
// Not safe for concurrent use.
type Engine struct {
	store    store.Gateway
	policy   policy.Policy
	actuator gpio.Actuator
	obs      Observer
	now      func() time.Time

	cache cycleCache
}

// NewEngine creates an engine. obs may be nil.
func NewEngine(gw store.Gateway, p policy.Policy, a gpio.Actuator, obs Observer) *Engine {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{
		store:    gw,
		policy:   p,
		actuator: a,
		obs:      obs,
		now:      time.Now,
	}
}

// BeginCycle forgets every value fetched in the previous cycle.
func (e *Engine) BeginCycle() {
	e.cache = cycleCache{}
}

// Refresh reads the current setting, resolves it and applies the relays.
// A concrete state is always applied; the returned error only reports an
// actuator failure.
func (e *Engine) Refresh(ctx context.Context) (Decision, error) {
	d := e.decide(ctx)
	err := e.actuator.Apply(d.Relay)
	if err != nil {
		log.Printf("engine: apply %s failed: %v", d.Label, err)
	}
	e.obs.Evaluated(d, e.now())
	return d, err
}

func (e *Engine) decide(ctx context.Context) Decision {
	setting, ok := e.latestSetting(ctx)
	if !ok {
		return failClosed(logic.Setting{}, "no setting available")
	}
	if !setting.IsAuto() {
		return e.resolve(setting, setting.Label)
	}
	return e.decideAuto(ctx, setting)
}

func (e *Engine) decideAuto(ctx context.Context, setting logic.Setting) Decision {
	roof, okRoof := e.latestReading(ctx, logic.RoleRoof, &e.cache.roof)
	home, okHome := e.latestReading(ctx, logic.RoleHome, &e.cache.home)
	house, okHouse := e.houseParameters(ctx)
	forecast, okForecast := e.forecast(ctx)
	if !okRoof || !okHome || !okHouse || !okForecast {
		return failClosed(setting, "auto inputs unavailable")
	}

	series := make([]float64, 0, len(forecast)+1)
	series = append(series, roof.Temperature)
	series = append(series, forecast...)

	label, err := e.policy.Resolve(policy.Inputs{
		RoofTemps:    series,
		RoofHumidity: roof.Humidity,
		HomeTemp:     home.Temperature,
		HomeHumidity: home.Humidity,
		House:        house,
		Desired:      setting.DesiredTemperature,
	})
	if err != nil {
		log.Printf("engine: policy failed: %v", err)
		d := failClosed(setting, "policy error")
		d.Roof, d.Home = &roof, &home
		return d
	}

	d := e.resolve(setting, label)
	d.Roof, d.Home = &roof, &home
	if d.FailClosed {
		return d
	}

	next, changed := logic.NextAuto(setting, label)
	if !changed {
		return d
	}
	if err := e.store.InsertSetting(ctx, next); err != nil {
		log.Printf("engine: persist %q failed: %v", next.String(), err)
		e.obs.StoreFailed(store.OpInsertSetting, err)
		return d
	}
	log.Printf("engine: auto setting %q -> %q", setting.String(), next.String())
	e.obs.SettingWritten(next)
	e.cache.setting = &next
	d.Setting = next
	d.Persisted = true
	return d
}

// resolve maps a label through the relay table, failing closed on unknown labels.
func (e *Engine) resolve(setting logic.Setting, label logic.Label) Decision {
	rs, ok := logic.RelayFor(label)
	if !ok {
		log.Printf("engine: unknown label %q, failing closed to %s", label, logic.LabelOff)
		return failClosed(setting, "unknown label "+string(label))
	}
	return Decision{Setting: setting, Label: label, Relay: rs}
}

func failClosed(setting logic.Setting, reason string) Decision {
	return Decision{
		Setting:    setting,
		Label:      logic.LabelOff,
		Relay:      logic.RelayOff,
		FailClosed: true,
		Reason:     reason,
	}
}

func (e *Engine) latestSetting(ctx context.Context) (logic.Setting, bool) {
	s, err := e.store.LatestSetting(ctx)
	if err == nil {
		e.cache.setting = &s
		return s, true
	}
	e.storeFailed(store.OpLatestSetting, err)
	if errors.Is(err, store.ErrNoSetting) {
		return logic.Setting{}, false
	}
	if e.cache.setting != nil {
		return *e.cache.setting, true
	}
	return logic.Setting{}, false
}

func (e *Engine) latestReading(ctx context.Context, role logic.Role, slot **logic.Reading) (logic.Reading, bool) {
	r, err := e.store.LatestReading(ctx, role)
	if err == nil {
		*slot = &r
		return r, true
	}
	e.storeFailed(store.OpLatestReading, err)
	if *slot != nil {
		return **slot, true
	}
	return logic.Reading{}, false
}

func (e *Engine) houseParameters(ctx context.Context) (logic.HouseParameters, bool) {
	h, err := e.store.HouseParameters(ctx)
	if err == nil {
		e.cache.house = &h
		return h, true
	}
	e.storeFailed(store.OpHouseParameters, err)
	if e.cache.house != nil {
		return *e.cache.house, true
	}
	return logic.HouseParameters{}, false
}

func (e *Engine) forecast(ctx context.Context) ([]float64, bool) {
	f, err := e.store.Forecast(ctx)
	if err == nil {
		e.cache.forecast = f
		return f, true
	}
	e.storeFailed(store.OpForecast, err)
	if e.cache.forecast != nil {
		return e.cache.forecast, true
	}
	return nil, false
}

func (e *Engine) storeFailed(op store.Op, err error) {
	log.Printf("store: %s failed: %v", op, err)
	e.obs.StoreFailed(op, err)
}
