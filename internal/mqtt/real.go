package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

const (
	publishTimeout    = 5 * time.Second
	DefaultBufferSize = 256
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	Prefix     string
	InstanceID string // per-process identifier, part of the client id
	BufferSize int    // messages kept while disconnected

	// OnConnectionChange, if set, is called from paho's goroutines.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker.
// Messages published while disconnected wait in an outbox and are replayed on connect.
type RealPublisher struct {
	client   paho.Client
	topics   Topics
	broker   string
	onChange func(bool)

	mu        sync.Mutex
	buf       *outbox
	connected bool // at least one connection has been made
}

// NewRealPublisher creates a publisher and starts connecting in the background.
func NewRealPublisher(o Options) *RealPublisher {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	p := &RealPublisher{
		topics:   TopicsFor(o.Prefix),
		broker:   o.Broker,
		onChange: o.OnConnectionChange,
		buf:      newOutbox(size),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID(o.InstanceID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.topics.System, string(willPayload(o.InstanceID, time.Now())), 1, true).
		SetOnConnectHandler(p.handleConnect).
		SetConnectionLostHandler(p.handleConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func clientID(instance string) string {
	if len(instance) > 8 {
		instance = instance[:8]
	}
	if instance == "" {
		return "swamp-cooler"
	}
	return "swamp-cooler-" + instance
}

func (p *RealPublisher) handleConnect(c paho.Client) {
	p.mu.Lock()
	dropped := p.buf.takeDropped()
	superseded := p.buf.superseded
	pending := p.buf.drain()
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	log.Printf("mqtt: connected to %s", p.broker)
	if p.onChange != nil {
		p.onChange(true)
	}

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			log.Printf("mqtt: format system payload: %v", err)
		} else {
			c.Publish(p.topics.System, 1, false, payload)
		}
	}

	if len(pending) > 0 {
		log.Printf("mqtt: replaying %d buffered messages (%d dropped, %d superseded)", len(pending), dropped, superseded)
	}
	for _, m := range pending {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) {
			log.Printf("mqtt: replay to %s timed out", m.topic)
			continue
		}
		if err := token.Error(); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}
}

func (p *RealPublisher) handleConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
	if p.onChange != nil {
		p.onChange(false)
	}
}

// publish sends now when connected, otherwise queues msg in the outbox.
func (p *RealPublisher) publish(msg pendingMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	topic := msg.topic
	token := p.client.Publish(topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishReading sends a reading, QoS 0, not retained.
func (p *RealPublisher) PublishReading(r logic.Reading) error {
	payload, err := FormatReadingPayload(r)
	if err != nil {
		return fmt.Errorf("format reading payload: %w", err)
	}
	return p.publish(pendingMsg{topic: p.topics.Readings, payload: payload})
}

// Publish sends a relay event, QoS 1 so transitions are not lost.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(pendingMsg{key: relayKey(event.Type), topic: p.topics.Events, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(pendingMsg{topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
