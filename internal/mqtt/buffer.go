package mqtt

import (
	"log"
	"strings"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// pendingMsg is a serialized message waiting for a connection.
// Messages with the same non-empty key supersede each other.
type pendingMsg struct {
	key      string
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// relayKey groups relay events by output, so PUMP_ON and PUMP_OFF share a key.
func relayKey(t logic.EventType) string {
	s := string(t)
	if i := strings.LastIndexByte(s, '_'); i > 0 {
		s = s[:i]
	}
	return "relay/" + strings.ToLower(s)
}

// outbox holds messages published while disconnected, oldest first.
// Only the newest relay event per output is kept; when full, the oldest
// message is dropped. Callers hold RealPublisher.mu.
type outbox struct {
	msgs       []pendingMsg
	capacity   int
	dropped    int // lost to a full outbox since the last takeDropped
	superseded int // replaced by a newer message with the same key
	warned     bool
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]pendingMsg, 0, capacity), capacity: capacity}
}

func (o *outbox) push(msg pendingMsg) {
	if msg.key != "" {
		for i, m := range o.msgs {
			if m.key == msg.key {
				o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
				o.superseded++
				break
			}
		}
	}
	if len(o.msgs) == o.capacity {
		if !o.warned {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.capacity)
			o.warned = true
		}
		o.msgs = append(o.msgs[:0], o.msgs[1:]...)
		o.dropped++
	}
	o.msgs = append(o.msgs, msg)
}

// drain returns the pending messages and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]pendingMsg, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	o.superseded = 0
	o.warned = false
	return out
}

// takeDropped returns and clears the number of messages lost to a full outbox.
func (o *outbox) takeDropped() int {
	n := o.dropped
	o.dropped = 0
	return n
}

func (o *outbox) len() int {
	return len(o.msgs)
}
