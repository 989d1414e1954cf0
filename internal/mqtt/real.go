package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// bufferCapacity bounds the messages kept while the broker is unreachable.
// An outage typically lasts a few power cycles, so this is generous.
const bufferCapacity = 256

const (
	publishTimeout = 5 * time.Second
	// writeTimeout bounds how long Publish waits to hand a packet to paho's
	// outbound queue, which is the only part that runs on the caller.
	writeTimeout = time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed, oldest first, on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string
	logger zerolog.Logger

	// mu orders buffering against onConnect's drain.
	mu  sync.Mutex
	buf *ringBuffer

	pending sync.WaitGroup
}

// NewRealPublisher creates a publisher for the given broker. It does not wait
// for the connection: the watchdog must run even when the broker sits behind
// the very link it is watching.
func NewRealPublisher(broker string, logger zerolog.Logger) *RealPublisher {
	p := newPublisher(logger)

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("net-watchdog").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWriteTimeout(writeTimeout).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn().Err(err).Msg("mqtt connection lost")
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(logger zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		topic:  Topic,
		logger: logger,
		buf:    newRingBuffer(bufferCapacity, logger),
	}
}

// onConnect announces the (re)connection and replays buffered messages.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.buf.drainAll()
	p.mu.Unlock()

	p.logger.Info().Int("replay", len(msgs)).Int("dropped", dropped).Msg("mqtt connected")

	if payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err == nil {
		c.Publish(TopicSystem, 1, false, payload)
	}
	for _, m := range msgs {
		token := c.Publish(m.topic, m.qos, m.retained, m.payload)
		if !token.WaitTimeout(publishTimeout) || token.Error() != nil {
			p.logger.Warn().Err(token.Error()).Str("topic", m.topic).Msg("mqtt replay failed")
		}
	}
}

// Publish sends a watchdog event to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.send(bufferedMsg{topic: p.topic, payload: payload}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	if err := p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// send never waits for the broker: the watchdog loop calls it. The result
// of each publish is logged from its own goroutine.
func (p *RealPublisher) send(m bufferedMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		// paho marks the connection open before it runs onConnect, and
		// onConnect drains under mu, so this message is replayed either by a
		// handler that is about to run or by the next reconnect.
		p.buf.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.await(token, m.topic)
	}()
	return nil
}

func (p *RealPublisher) await(token paho.Token, topic string) {
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn().Str("topic", topic).Msg("mqtt publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
	}
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close waits up to publishTimeout for in-flight publishes, so the retained
// SHUTDOWN event gets out, then disconnects from the broker.
func (p *RealPublisher) Close() error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(publishTimeout):
		p.logger.Warn().Msg("mqtt close: publishes still in flight")
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
