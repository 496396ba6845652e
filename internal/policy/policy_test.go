package policy

import (
	"errors"
	"testing"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

func TestThresholdResolve(t *testing.T) {
	house := logic.HouseParameters{HouseVolume: 12000, LoFanVolume: 4500, HiFanVolume: 7000}
	tests := []struct {
		name string
		in   Inputs
		want logic.Label
	}{
		{
			name: "house at desired",
			in:   Inputs{RoofTemps: []float64{100}, HomeTemp: 72, Desired: 72, House: house},
			want: logic.LabelOff,
		},
		{
			name: "cold start sentinel",
			in: Inputs{
				RoofTemps:    []float64{logic.SentinelTemperature},
				RoofHumidity: logic.SentinelHumidity,
				HomeTemp:     logic.SentinelTemperature,
				HomeHumidity: logic.SentinelHumidity,
				Desired:      72,
			},
			want: logic.LabelOff,
		},
		{
			name: "humid outside, small gap",
			in:   Inputs{RoofTemps: []float64{95}, RoofHumidity: 70, HomeTemp: 74, Desired: 72, House: house},
			want: logic.LabelFanLo,
		},
		{
			name: "humid outside, large gap",
			in:   Inputs{RoofTemps: []float64{95}, RoofHumidity: 70, HomeTemp: 80, Desired: 72, House: house},
			want: logic.LabelFanHi,
		},
		{
			name: "roof cooler than house",
			in:   Inputs{RoofTemps: []float64{68, 90}, RoofHumidity: 20, HomeTemp: 74, Desired: 72, House: house},
			want: logic.LabelFanLo,
		},
		{
			name: "evaporative, small gap",
			in:   Inputs{RoofTemps: []float64{90, 92, 94}, RoofHumidity: 15, HomeTemp: 74, Desired: 72, House: house},
			want: logic.LabelFanLoWithPump,
		},
		{
			name: "evaporative, large gap",
			in:   Inputs{RoofTemps: []float64{90}, RoofHumidity: 15, HomeTemp: 78, Desired: 72, House: house},
			want: logic.LabelFanHiWithPump,
		},
		{
			name: "evaporative, hot forecast",
			in:   Inputs{RoofTemps: []float64{90, 99, 104, 101}, RoofHumidity: 15, HomeTemp: 74, Desired: 72, House: house},
			want: logic.LabelFanHiWithPump,
		},
		{
			name: "evaporative, weak low speed",
			in: Inputs{
				RoofTemps: []float64{90}, RoofHumidity: 15, HomeTemp: 74, Desired: 72,
				House: logic.HouseParameters{HouseVolume: 30000, LoFanVolume: 4500},
			},
			want: logic.LabelFanHiWithPump,
		},
	}

	p := DefaultThreshold()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Resolve(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !got.Valid() {
				t.Errorf("label %q is not one of the relay combinations", got)
			}
		})
	}
}

func TestThresholdDeterministic(t *testing.T) {
	p := DefaultThreshold()
	in := Inputs{RoofTemps: []float64{90, 95}, RoofHumidity: 20, HomeTemp: 76, Desired: 72}
	first, _ := p.Resolve(in)
	for i := 0; i < 10; i++ {
		if got, _ := p.Resolve(in); got != first {
			t.Fatalf("call %d: got %q, want %q", i, got, first)
		}
	}
}

func TestThresholdEmptySeries(t *testing.T) {
	_, err := DefaultThreshold().Resolve(Inputs{HomeTemp: 80, Desired: 72})
	if !errors.Is(err, ErrNoRoofSeries) {
		t.Errorf("expected ErrNoRoofSeries, got %v", err)
	}
}

func TestThresholdValidate(t *testing.T) {
	if err := DefaultThreshold().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	bad := DefaultThreshold()
	bad.HighSpeedGap = 0
	if bad.Validate() == nil {
		t.Error("expected error for zero gap")
	}
	bad = DefaultThreshold()
	bad.MaxOutdoorHumidity = 150
	if bad.Validate() == nil {
		t.Error("expected error for humidity above 100")
	}
}

func TestStubRecordsInputs(t *testing.T) {
	s := &Stub{Label: logic.LabelFanHi}
	series := []float64{90, 91}
	got, err := s.Resolve(Inputs{RoofTemps: series, Desired: 70})
	if err != nil || got != logic.LabelFanHi {
		t.Fatalf("got %q, %v", got, err)
	}
	series[0] = 0
	if s.Calls[0].RoofTemps[0] != 90 {
		t.Error("stub should keep its own copy of the series")
	}
	if s.CallCount() != 1 {
		t.Errorf("calls: got %d", s.CallCount())
	}
}

func TestFuncAdapter(t *testing.T) {
	var p Policy = Func(func(in Inputs) (logic.Label, error) { return logic.LabelPump, nil })
	if got, _ := p.Resolve(Inputs{}); got != logic.LabelPump {
		t.Errorf("got %q", got)
	}
}
