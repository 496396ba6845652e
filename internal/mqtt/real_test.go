package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// stubClient records publishes. Methods the publisher never calls are left
// to the embedded nil interface.
type stubClient struct {
	paho.Client
	open bool
	sent []sentMsg
}

func (c *stubClient) IsConnectionOpen() bool { return c.open }

func (c *stubClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func newStubPublisher(c *stubClient) *RealPublisher {
	return &RealPublisher{
		client: c,
		topics: TopicsFor("home/cooler/swamp"),
		broker: "tcp://test:1883",
		buf:    newOutbox(8),
	}
}

func TestRealPublisherQueuesWhileDisconnected(t *testing.T) {
	c := &stubClient{}
	p := newStubPublisher(c)

	if err := p.Publish(logic.Event{Type: logic.EventPumpOn, Label: logic.LabelPump}); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishReading(logic.Reading{Sensor: logic.RoleRoof, Temperature: 101}); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(logic.Event{Type: logic.EventPumpOff, Label: logic.LabelOff}); err != nil {
		t.Fatal(err)
	}

	if len(c.sent) != 0 {
		t.Errorf("nothing should reach the client while disconnected, got %d", len(c.sent))
	}
	if got := p.Buffered(); got != 2 {
		t.Errorf("buffered: got %d, want 2 (pump events coalesce)", got)
	}
}

func TestRealPublisherReconnectReplays(t *testing.T) {
	c := &stubClient{}
	p := newStubPublisher(c)
	p.connected = true

	off := logic.Event{Type: logic.EventPumpOff, Label: logic.LabelOff}
	p.Publish(logic.Event{Type: logic.EventPumpOn, Label: logic.LabelPump})
	p.PublishReading(logic.Reading{Sensor: logic.RoleHome, Temperature: 74, Humidity: 30})
	p.Publish(off)

	c.open = true
	p.handleConnect(c)

	if len(c.sent) != 3 {
		t.Fatalf("sent: got %d, want 3", len(c.sent))
	}

	var sys SystemPayload
	if err := json.Unmarshal(c.sent[0].payload, &sys); err != nil {
		t.Fatalf("system payload: %v", err)
	}
	if c.sent[0].topic != "home/cooler/swamp/system" || sys.System.Event != "RECONNECTED" {
		t.Errorf("first message: got %s %s, want RECONNECTED on system", c.sent[0].topic, sys.System.Event)
	}
	if c.sent[0].retained {
		t.Error("RECONNECTED should not be retained")
	}

	if c.sent[1].topic != "home/cooler/swamp/readings" || c.sent[1].qos != 0 {
		t.Errorf("second message: got %s qos %d, want readings qos 0", c.sent[1].topic, c.sent[1].qos)
	}

	want, err := FormatPayload(off)
	if err != nil {
		t.Fatal(err)
	}
	if c.sent[2].topic != "home/cooler/swamp/events" || string(c.sent[2].payload) != string(want) {
		t.Errorf("third message: got %s %s, want latest pump event", c.sent[2].topic, c.sent[2].payload)
	}
	if p.Buffered() != 0 {
		t.Errorf("buffered after replay: got %d", p.Buffered())
	}
}

func TestRealPublisherFirstConnectHasNoReconnectEvent(t *testing.T) {
	c := &stubClient{open: true}
	p := newStubPublisher(c)

	p.handleConnect(c)
	if len(c.sent) != 0 {
		t.Errorf("sent: got %d, want 0", len(c.sent))
	}
	if !p.connected {
		t.Error("connected should be set after the first connect")
	}
}

func TestRealPublisherPublishesWhenOpen(t *testing.T) {
	c := &stubClient{open: true}
	p := newStubPublisher(c)

	if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 1 || !c.sent[0].retained || c.sent[0].qos != 1 {
		t.Errorf("got %+v, want one retained qos 1 message", c.sent)
	}
	if p.Buffered() != 0 {
		t.Error("nothing should be queued while open")
	}
}
