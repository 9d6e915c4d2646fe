package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/sound-monitor/internal/loudness"
)

// ErrNotConnected is returned for readings published while the broker is
// unreachable. Readings are never queued.
var ErrNotConnected = errors.New("mqtt: not connected")

const (
	// backlogCapacity is the number of lifecycle events held while the
	// broker is unreachable.
	backlogCapacity = 100
	// connectWait bounds the initial connect before it continues in the background.
	connectWait = 10 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Lifecycle events
// published while the connection is down are held and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    zerolog.Logger

	mu      sync.Mutex
	backlog *backlog
}

// NewRealPublisher creates a publisher for the given broker. The client keeps
// retrying in the background; an initial connect timeout is logged, not fatal.
func NewRealPublisher(broker, clientID string, log zerolog.Logger) (*RealPublisher, error) {
	return newRealPublisher(broker, clientID, connectWait, log)
}

func newRealPublisher(broker, clientID string, wait time.Duration, log zerolog.Logger) (*RealPublisher, error) {
	if broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}

	p := &RealPublisher{
		log:     log,
		backlog: newBacklog(backlogCapacity, log),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(wait) {
		log.Warn().Str("broker", broker).Msg("mqtt connect timeout, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// PublishReading sends a reading to the broker. It fails with
// ErrNotConnected when the broker is down.
func (p *RealPublisher) PublishReading(r loudness.Reading) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(pending{topic: TopicReadings, payload: payload})
}

// PublishSystem sends a system lifecycle event to the broker, holding it
// for replay when the broker is down.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	msg := pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.backlog.add(msg)
		p.mu.Unlock()
		return nil
	}
	return p.send(msg)
}

func (p *RealPublisher) send(msg pending) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay flushes events held while disconnected. Runs on the paho connect
// handler goroutine.
func (p *RealPublisher) replay() {
	p.mu.Lock()
	msgs := p.backlog.take()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.Info().Int("count", len(msgs)).Msg("replaying mqtt backlog")
	for _, m := range msgs {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
