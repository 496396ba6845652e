package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// FakeStore is an in-memory Gateway for testing.
type FakeStore struct {
	mu sync.Mutex

	Readings []logic.Reading
	Settings []logic.Setting
	House    logic.HouseParameters
	Temps    []float64

	// Errors injects a failure per operation.
	Errors map[Op]error
	// Calls counts invocations per operation, failed ones included.
	Calls map[Op]int

	// Now stamps inserted rows. Defaults to an advancing clock.
	Now func() time.Time
	tick time.Time
}

// NewFakeStore creates a store holding initial as its only setting.
func NewFakeStore(initial logic.Setting) *FakeStore {
	return &FakeStore{
		Settings: []logic.Setting{initial},
		Errors:   make(map[Op]error),
		Calls:    make(map[Op]int),
	}
}

func (s *FakeStore) call(op Op) error {
	if s.Calls == nil {
		s.Calls = make(map[Op]int)
	}
	s.Calls[op]++
	if err := s.Errors[op]; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *FakeStore) stamp() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	if s.tick.IsZero() {
		s.tick = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	s.tick = s.tick.Add(time.Second)
	return s.tick
}

// SetError injects err for op. A nil err clears it.
func (s *FakeStore) SetError(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Errors == nil {
		s.Errors = make(map[Op]error)
	}
	if err == nil {
		delete(s.Errors, op)
		return
	}
	s.Errors[op] = err
}

// CallCount returns how many times op was invoked.
func (s *FakeStore) CallCount(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

// Current returns the newest setting without counting a call.
func (s *FakeStore) Current() logic.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Settings) == 0 {
		return logic.Setting{}
	}
	return s.Settings[len(s.Settings)-1]
}

// PushSetting appends a setting as an operator would, without counting a call.
func (s *FakeStore) PushSetting(setting logic.Setting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Settings = append(s.Settings, setting)
}

func (s *FakeStore) InsertReading(_ context.Context, r logic.Reading) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpInsertReading); err != nil {
		return 0, err
	}
	r.ReceivedAt = s.stamp()
	s.Readings = append(s.Readings, r)
	return 1, nil
}

func (s *FakeStore) LatestSetting(_ context.Context) (logic.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpLatestSetting); err != nil {
		return logic.Setting{}, err
	}
	if len(s.Settings) == 0 {
		return logic.Setting{}, ErrNoSetting
	}
	return s.Settings[len(s.Settings)-1], nil
}

func (s *FakeStore) InsertSetting(_ context.Context, setting logic.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpInsertSetting); err != nil {
		return err
	}
	setting.RecordedAt = s.stamp()
	s.Settings = append(s.Settings, setting)
	return nil
}

func (s *FakeStore) LatestReading(_ context.Context, role logic.Role) (logic.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpLatestReading); err != nil {
		return logic.Reading{}, err
	}
	for i := len(s.Readings) - 1; i >= 0; i-- {
		if s.Readings[i].Sensor == role {
			return s.Readings[i], nil
		}
	}
	return logic.SentinelReading(role), nil
}

func (s *FakeStore) HouseParameters(_ context.Context) (logic.HouseParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpHouseParameters); err != nil {
		return logic.HouseParameters{}, err
	}
	return s.House, nil
}

func (s *FakeStore) Forecast(_ context.Context) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpForecast); err != nil {
		return nil, err
	}
	n := len(s.Temps)
	if n > logic.ForecastHorizon {
		n = logic.ForecastHorizon
	}
	out := make([]float64, n)
	copy(out, s.Temps)
	return out, nil
}

func (s *FakeStore) ReadingsSince(_ context.Context, role logic.Role, days int) ([]logic.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpReadingsSince); err != nil {
		return nil, err
	}
	if days < 1 {
		return nil, fmt.Errorf("%s: days must be at least 1, got %d", OpReadingsSince, days)
	}
	var out []logic.Reading
	for _, r := range s.Readings {
		if r.Sensor == role {
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of stored readings for role.
func (s *FakeStore) Count(role logic.Role) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.Readings {
		if r.Sensor == role {
			n++
		}
	}
	return n
}
