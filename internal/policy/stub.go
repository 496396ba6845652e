package policy

import (
	"sync"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// Stub returns a fixed label and records its inputs. For testing.
type Stub struct {
	mu    sync.Mutex
	Label logic.Label
	Err   error
	Calls []Inputs
}

func (s *Stub) Resolve(in Inputs) (logic.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.RoofTemps = append([]float64(nil), in.RoofTemps...)
	s.Calls = append(s.Calls, in)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Label, nil
}

// Set changes the label returned from now on.
func (s *Stub) Set(l logic.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Label = l
}

// CallCount returns how many times Resolve was called.
func (s *Stub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
