package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/command"
)

// Options configures a RealPublisher.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
	// BufferSize bounds the messages kept for replay while disconnected.
	BufferSize int
	// Commands receives requests from the command topics. Nil disables
	// the subscriptions.
	Commands command.Commander
	// OnConnectionChange is called from the client goroutines whenever the
	// connection comes up or goes down.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topics Topics
	router *Router
	notify func(bool)

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker. The
// client keeps retrying in the background, so a broker that is down at
// startup is not fatal: messages are buffered until it comes up.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: NewTopics(o.Prefix),
		notify: o.OnConnectionChange,
		buf:    newRingBuffer(o.BufferSize),
	}
	if o.Commands != nil {
		p.router = NewRouter(p.topics, o.Commands)
	}
	if p.notify == nil {
		p.notify = func(bool) {}
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(p.topics.Status(), "offline", 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warn().Str("broker", o.Broker).Msg("mqtt not connected yet, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	log.Info().Msg("mqtt connected")

	if t := c.Publish(p.topics.Status(), 1, true, "online"); t.WaitTimeout(5*time.Second) && t.Error() != nil {
		log.Warn().Err(t.Error()).Msg("publish online status")
	}

	if p.router != nil {
		filters := make(map[string]byte)
		for _, f := range p.topics.Subscriptions() {
			filters[f] = 1
		}
		if t := c.SubscribeMultiple(filters, p.onMessage); t.WaitTimeout(5*time.Second) && t.Error() != nil {
			log.Error().Err(t.Error()).Msg("subscribe to command topics")
		}
	}

	p.mu.Lock()
	pending := p.buf.drainAll()
	p.mu.Unlock()
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(pending) > 0 {
		log.Info().Int("count", len(pending)).Msg("replayed buffered mqtt messages")
	}

	p.notify(true)
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Warn().Err(err).Msg("mqtt connection lost")
	p.notify(false)
}

func (p *RealPublisher) onMessage(_ paho.Client, msg paho.Message) {
	// Retained commands would replay stale requests on every reconnect.
	if msg.Retained() {
		return
	}
	err := p.router.Handle(msg.Topic(), msg.Payload())
	switch {
	case err == nil:
		log.Debug().Str("topic", msg.Topic()).Msg("mqtt command accepted")
	case errors.Is(err, command.ErrBusy):
		log.Warn().Str("topic", msg.Topic()).Msg("command queue full")
	default:
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("mqtt command ignored")
	}
}

// Publish sends a channel state change to the MQTT broker.
func (p *RealPublisher) Publish(event StateEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), retained so new subscribers see the current state
	return p.publish(p.topics.State(event.Kind, event.Channel), 0, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(p.topics.System(), 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close publishes the offline flag and disconnects from the broker.
func (p *RealPublisher) Close() error {
	if p.client.IsConnectionOpen() {
		p.client.Publish(p.topics.Status(), 1, true, "offline").WaitTimeout(time.Second)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
