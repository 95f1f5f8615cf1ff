package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/detection-dashboard/internal/logic"
)

const (
	publishTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
)

// RealClient publishes to, and subscribes on, an actual MQTT broker.
// Messages published while the connection is down are buffered and
// replayed on reconnect; subscriptions are restored on reconnect.
type RealClient struct {
	client paho.Client
	log    logs.Log

	mu      sync.Mutex
	pending *ringBuffer
	subs    map[string]func(payload []byte)
}

// NewRealClient configures a client for the given broker. Call Connect to
// start connecting.
func NewRealClient(log logs.Log, broker, clientID string) *RealClient {
	c := &RealClient{
		log:     log,
		pending: newRingBuffer(BufferCapacity),
		subs:    make(map[string]func(payload []byte)),
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: EventOffline})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = paho.NewClient(opts)
	return c
}

// Connect starts connecting and waits up to timeout for the first
// connection. On timeout the client keeps retrying in the background.
func (c *RealClient) Connect(timeout time.Duration) error {
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	msgs, dropped := c.pending.drainAll()
	subs := make(map[string]func(payload []byte), len(c.subs))
	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	c.mu.Unlock()

	c.log.Infof("mqtt: connected, replaying %d buffered messages (%d dropped)", len(msgs), dropped)
	for _, m := range msgs {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	for topic, handler := range subs {
		client.Subscribe(topic, 0, messageHandler(handler))
	}
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.log.Warnf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is currently up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// PublishDetection sends a detection to the MQTT broker.
func (c *RealClient) PublishDetection(d logic.Detection) error {
	payload, err := FormatPayload(d)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return c.publish(TopicDetections, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	return c.publish(TopicSystem, 1, event.Retained, payload)
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		firstDrop := c.pending.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		c.mu.Unlock()
		if firstDrop {
			c.log.Warnf("mqtt: buffer full (%d messages), dropping oldest", BufferCapacity)
		}
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. If the client is not connected yet,
// the subscription is made once it connects.
func (c *RealClient) Subscribe(topic string, handler func(payload []byte)) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}

	token := c.client.Subscribe(topic, 0, messageHandler(handler))
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic.
func (c *RealClient) Unsubscribe(topic string) error {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}

	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("unsubscribe %s: timeout", topic)
	}
	return token.Error()
}

// SubscribeDetections attaches a Subscriber that receives detections
// published on topic.
func (c *RealClient) SubscribeDetections(topic string, depth int) (*Subscriber, error) {
	s := NewSubscriber(c.log, depth)
	if err := c.Subscribe(topic, s.Handle); err != nil {
		return nil, err
	}
	s.unsubscribe = func() error { return c.Unsubscribe(topic) }
	return s, nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}

func messageHandler(handler func(payload []byte)) paho.MessageHandler {
	return func(_ paho.Client, m paho.Message) {
		handler(m.Payload())
	}
}
