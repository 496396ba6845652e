package control

import (
	"context"
	"errors"
	"testing"

	"github.com/sweeney/swamp-cooler/internal/logic"
	"github.com/sweeney/swamp-cooler/internal/store"
)

// flakyStore fails LatestSetting after the first okCalls successes.
type flakyStore struct {
	*store.FakeStore
	okCalls int
	calls   int
}

func (f *flakyStore) LatestSetting(ctx context.Context) (logic.Setting, error) {
	f.calls++
	if f.calls > f.okCalls {
		return logic.Setting{}, errors.New("connection reset")
	}
	return f.FakeStore.LatestSetting(ctx)
}

func TestManualLabelsMapThroughTable(t *testing.T) {
	want := map[logic.Label]logic.RelayState{
		logic.LabelOff:           {},
		logic.LabelPump:          {Pump: true},
		logic.LabelFanLo:         {Fan: true},
		logic.LabelFanHi:         {Fan: true, Speed: true},
		logic.LabelFanLoWithPump: {Pump: true, Fan: true},
		logic.LabelFanHiWithPump: {Pump: true, Fan: true, Speed: true},
	}
	for label, rs := range want {
		t.Run(string(label), func(t *testing.T) {
			h := newHarness(manual(label))
			d, err := h.engine.Refresh(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Relay != rs || d.Label != label || d.FailClosed {
				t.Errorf("got %+v, want %s %+v", d, label, rs)
			}
			if last, _ := h.act.Last(); last != rs {
				t.Errorf("applied: got %+v, want %+v", last, rs)
			}
			if h.policy.CallCount() != 0 {
				t.Error("manual mode must not call the policy")
			}
			if h.store.CallCount(store.OpInsertSetting) != 0 {
				t.Error("manual mode must not write settings")
			}
		})
	}
}

func TestAutoLabelChangeWritesOnce(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Set(logic.LabelFanHi)
	ctx := context.Background()

	first, _ := h.engine.Refresh(ctx)
	second, _ := h.engine.Refresh(ctx)

	if !first.Persisted {
		t.Error("first evaluation should persist the new label")
	}
	if second.Persisted {
		t.Error("second evaluation should not persist again")
	}
	if n := h.store.CallCount(store.OpInsertSetting); n != 1 {
		t.Errorf("insert_setting calls: got %d, want 1", n)
	}
	cur := h.store.Current()
	if cur.String() != "Auto Fan Hi" || cur.DesiredTemperature != 72 {
		t.Errorf("stored: got %q at %v, want \"Auto Fan Hi\" at 72", cur.String(), cur.DesiredTemperature)
	}
	want := logic.RelayState{Fan: true, Speed: true}
	for i, rs := range h.act.History {
		if rs != want {
			t.Errorf("apply %d: got %+v, want %+v", i, rs, want)
		}
	}
	if len(h.obs.written) != 1 {
		t.Errorf("written notifications: got %d, want 1", len(h.obs.written))
	}
}

func TestAutoUnchangedNoWriteButApplies(t *testing.T) {
	h := newHarness(auto(logic.LabelFanHiWithPump, 70))
	h.policy.Set(logic.LabelFanHiWithPump)

	for i := 0; i < 3; i++ {
		h.engine.Refresh(context.Background())
	}
	if n := h.store.CallCount(store.OpInsertSetting); n != 0 {
		t.Errorf("insert_setting calls: got %d, want 0", n)
	}
	if h.act.Applies() != 3 {
		t.Errorf("applies: got %d, want 3", h.act.Applies())
	}
}

func TestAutoFirstResolutionFromBareAuto(t *testing.T) {
	h := newHarness(auto("", 75))
	h.policy.Set(logic.LabelPump)

	d, _ := h.engine.Refresh(context.Background())
	if !d.Persisted || h.store.Current().String() != "Auto Pump" {
		t.Errorf("got persisted=%v stored=%q", d.Persisted, h.store.Current().String())
	}
}

func TestAutoPolicyInputs(t *testing.T) {
	h := newHarness(auto(logic.LabelOff, 72))
	h.store.Readings = []logic.Reading{
		{Sensor: logic.RoleRoof, Temperature: 101.2, Humidity: 12.5, ReceivedAt: t0},
		{Sensor: logic.RoleHome, Temperature: 78.5, Humidity: 30, ReceivedAt: t0},
	}
	h.store.Temps = []float64{100, 102}
	h.store.House = logic.HouseParameters{HouseVolume: 12000, LoFanVolume: 4500}

	h.engine.Refresh(context.Background())

	if h.policy.CallCount() != 1 {
		t.Fatalf("policy calls: got %d, want 1", h.policy.CallCount())
	}
	in := h.policy.Calls[0]
	wantSeries := []float64{101.2, 100, 102}
	if len(in.RoofTemps) != len(wantSeries) {
		t.Fatalf("roof series: got %v, want %v", in.RoofTemps, wantSeries)
	}
	for i := range wantSeries {
		if in.RoofTemps[i] != wantSeries[i] {
			t.Errorf("roof series[%d]: got %v, want %v", i, in.RoofTemps[i], wantSeries[i])
		}
	}
	if in.RoofHumidity != 12.5 || in.HomeTemp != 78.5 || in.HomeHumidity != 30 {
		t.Errorf("readings: got %+v", in)
	}
	if in.Desired != 72 || in.House.HouseVolume != 12000 {
		t.Errorf("desired/house: got %v / %+v", in.Desired, in.House)
	}
}

func TestAutoColdStartUsesSentinel(t *testing.T) {
	h := newHarness(auto(logic.LabelOff, 72))

	d, _ := h.engine.Refresh(context.Background())
	if d.FailClosed {
		t.Fatalf("cold start should still resolve, got %+v", d)
	}
	in := h.policy.Calls[0]
	if in.RoofTemps[0] != logic.SentinelTemperature || in.RoofHumidity != logic.SentinelHumidity {
		t.Errorf("roof: got %v/%v, want sentinel", in.RoofTemps[0], in.RoofHumidity)
	}
	if in.HomeTemp != logic.SentinelTemperature || in.HomeHumidity != logic.SentinelHumidity {
		t.Errorf("home: got %v/%v, want sentinel", in.HomeTemp, in.HomeHumidity)
	}
}

func TestUnknownStoredLabelFailsClosed(t *testing.T) {
	h := newHarness(manual("Turbo"))
	h.act.Apply(logic.RelayState{Pump: true, Fan: true})

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed || d.Label != logic.LabelOff {
		t.Errorf("got %+v, want fail closed to Off", d)
	}
	if last, _ := h.act.Last(); last != logic.RelayOff {
		t.Errorf("applied: got %+v, want off", last)
	}
}

func TestUnknownPolicyLabelFailsClosedWithoutWrite(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Set("Turbo")

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed || d.Relay != logic.RelayOff {
		t.Errorf("got %+v, want fail closed", d)
	}
	if h.store.CallCount(store.OpInsertSetting) != 0 {
		t.Error("an unknown label must never be persisted")
	}
}

func TestPolicyErrorFailsClosed(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Err = errors.New("model unavailable")

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed || d.Relay != logic.RelayOff {
		t.Errorf("got %+v, want fail closed", d)
	}
	if h.store.CallCount(store.OpInsertSetting) != 0 {
		t.Error("policy failure must not write a setting")
	}
}

func TestSettingStoreFailureWithoutCacheFailsClosed(t *testing.T) {
	h := newHarness(manual(logic.LabelPump))
	h.store.SetError(store.OpLatestSetting, errors.New("connection refused"))

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed || d.Relay != logic.RelayOff {
		t.Errorf("got %+v, want fail closed", d)
	}
	if len(h.obs.storeFails) != 1 || h.obs.storeFails[0] != store.OpLatestSetting {
		t.Errorf("store failures: got %v", h.obs.storeFails)
	}
}

func TestSettingStoreFailureFallsBackWithinCycle(t *testing.T) {
	h := newHarness(manual(logic.LabelPump))
	flaky := &flakyStore{FakeStore: h.store, okCalls: 1}
	e := NewEngine(flaky, h.policy, h.act, h.obs)
	ctx := context.Background()

	e.BeginCycle()
	first, _ := e.Refresh(ctx)
	second, _ := e.Refresh(ctx)
	if first.Label != logic.LabelPump || second.Label != logic.LabelPump || second.FailClosed {
		t.Errorf("same cycle should reuse the fetched setting, got %s then %+v", first.Label, second)
	}

	e.BeginCycle()
	third, _ := e.Refresh(ctx)
	if !third.FailClosed {
		t.Errorf("next cycle must not reuse old values, got %+v", third)
	}
}

func TestAutoInputFailureFailsClosed(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Set(logic.LabelFanHi)
	h.store.SetError(store.OpForecast, errors.New("timeout"))

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed {
		t.Errorf("got %+v, want fail closed", d)
	}
	if h.policy.CallCount() != 0 {
		t.Error("policy should not be called without inputs")
	}
}

func TestAutoInputFailureUsesCycleCache(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Set(logic.LabelFanLo)
	ctx := context.Background()

	h.engine.BeginCycle()
	h.engine.Refresh(ctx)
	h.store.SetError(store.OpForecast, errors.New("timeout"))
	d, _ := h.engine.Refresh(ctx)
	if d.FailClosed || d.Label != logic.LabelFanLo {
		t.Errorf("got %+v, want Fan Lo from cached forecast", d)
	}
}

func TestInsertSettingFailureStillApplies(t *testing.T) {
	h := newHarness(auto(logic.LabelFanLo, 72))
	h.policy.Set(logic.LabelFanHi)
	h.store.SetError(store.OpInsertSetting, errors.New("read-only"))
	ctx := context.Background()

	d, _ := h.engine.Refresh(ctx)
	if d.Persisted {
		t.Error("failed write must not be reported as persisted")
	}
	if d.Relay != (logic.RelayState{Fan: true, Speed: true}) {
		t.Errorf("applied: got %+v, want fan hi", d.Relay)
	}

	h.store.SetError(store.OpInsertSetting, nil)
	d, _ = h.engine.Refresh(ctx)
	if !d.Persisted || h.store.Current().String() != "Auto Fan Hi" {
		t.Errorf("write should be retried, got persisted=%v stored=%q", d.Persisted, h.store.Current().String())
	}
}

func TestNoSettingAtRuntimeFailsClosed(t *testing.T) {
	h := newHarness(manual(logic.LabelPump))
	h.store.Settings = nil

	d, _ := h.engine.Refresh(context.Background())
	if !d.FailClosed || d.Relay != logic.RelayOff {
		t.Errorf("got %+v, want fail closed", d)
	}
}

func TestApplyErrorReturned(t *testing.T) {
	h := newHarness(manual(logic.LabelPump))
	h.act.ApplyError = errors.New("line busy")

	d, err := h.engine.Refresh(context.Background())
	if err == nil {
		t.Error("expected actuator error")
	}
	if d.Label != logic.LabelPump {
		t.Errorf("decision should still be reported, got %s", d.Label)
	}
}
