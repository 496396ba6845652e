package mqtt

import "github.com/sweeney/swamp-cooler/internal/logic"

// Discard drops every message. It stands in when no broker is configured.
type Discard struct{}

func (Discard) PublishReading(logic.Reading) error { return nil }
func (Discard) Publish(logic.Event) error          { return nil }
func (Discard) PublishSystem(SystemEvent) error    { return nil }
func (Discard) Close() error                       { return nil }
func (Discard) IsConnected() bool                  { return false }
