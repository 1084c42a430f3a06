package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	_defaultQoS            = 0 // At most once
	_defaultRetained       = false
	_publishTimeout        = 5 * time.Second
	_subscribeTimeout      = 5 * time.Second
	_defaultConnectTimeout = 5 * time.Second
	_disconnectQuiesceMs   = 250
)

var (
	ErrConnectTimeout = errors.New("mqtt connect timed out")
	ErrPublishTimeout = errors.New("mqtt publish timed out")
)

type Client interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Subscribe(topic string, qos byte, callback MessageHandler) error
	Publish(ctx context.Context, topic string, payload []byte) error

	Disconnect()
}

type SimpleClientOpts struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// Subscription tracks a topic subscription for reconnection recovery
type subscription struct {
	topic    string
	qos      byte
	callback MessageHandler
}

// NewSimpleClient prepares a client without touching the network; call
// Connect before publishing.
func NewSimpleClient(opts SimpleClientOpts) *SimpleClient {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = _defaultConnectTimeout
	}
	simpleClient := &SimpleClient{
		subscriptions:  make(map[string]subscription),
		connectTimeout: opts.ConnectTimeout,
	}

	onConnectHandler := func(client paho.Client) {
		slog.Info("connected to MQTT broker", slog.String("broker", opts.Broker))
		simpleClient.resubscribeAll(client)
	}

	onConnectionLostHandler := func(_ paho.Client, err error) {
		slog.Error("connection lost to MQTT broker", slog.Any("error", err))
	}

	pahoOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetOnConnectHandler(onConnectHandler).
		SetAutoReconnect(true).
		SetConnectionLostHandler(onConnectionLostHandler).
		SetKeepAlive(10 * time.Second).
		SetConnectTimeout(opts.ConnectTimeout)

	simpleClient.client = paho.NewClient(pahoOpts)
	return simpleClient
}

var _ Client = (*SimpleClient)(nil)

type SimpleClient struct {
	client         paho.Client
	connectTimeout time.Duration
	subscriptions  map[string]subscription
	mu             sync.RWMutex
}

// Connect dials the broker and waits until it answers, ctx is done or
// the connect timeout passes, whichever comes first.
func (c *SimpleClient) Connect(ctx context.Context) error {
	if c.client.IsConnectionOpen() {
		return nil
	}
	token := c.client.Connect()
	timeout := c.connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	if !token.WaitTimeout(timeout) {
		if ctx.Err() != nil {
			return fmt.Errorf("connecting to broker: %w", ctx.Err())
		}
		return fmt.Errorf("connecting to broker: %w", ErrConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	return nil
}

func (c *SimpleClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// resubscribeAll re-establishes all subscriptions after reconnection
func (c *SimpleClient) resubscribeAll(client paho.Client) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.subscriptions) == 0 {
		slog.Debug("no subscriptions to restore")
		return
	}

	slog.Info("restoring MQTT subscriptions after reconnection", slog.Int("count", len(c.subscriptions)))

	for topic, sub := range c.subscriptions {
		token := client.Subscribe(sub.topic, sub.qos, c.pahoCallback(sub.callback))
		token.WaitTimeout(_subscribeTimeout)
		if token.Error() != nil {
			slog.Error("failed to restore subscription after reconnection",
				slog.String("topic", topic), slog.Any("error", token.Error()))
		} else {
			slog.Debug("subscription restored", slog.String("topic", topic))
		}
	}
}

func (c *SimpleClient) pahoCallback(callback MessageHandler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		callback(c, msg)
	}
}

// Subscribe remembers the subscription so it survives reconnects. While
// disconnected it is only remembered and applied on the next connect.
func (c *SimpleClient) Subscribe(topic string, qos byte, callback MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = subscription{
		topic:    topic,
		qos:      qos,
		callback: callback,
	}
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		slog.Debug("subscription deferred until connected", slog.String("topic", topic))
		return nil
	}

	token := c.client.Subscribe(topic, qos, c.pahoCallback(callback))
	token.WaitTimeout(_subscribeTimeout)
	if token.Error() != nil {
		c.mu.Lock()
		delete(c.subscriptions, topic)
		c.mu.Unlock()
		return fmt.Errorf("subscribing to topic %s: %w", topic, token.Error())
	}

	slog.Info("subscribed to MQTT topic", slog.String("topic", topic), slog.Int("qos", int(qos)))
	return nil
}

type MessageHandler func(Client, Message)

type Message interface {
	Topic() string
	MessageID() uint16
	Payload() []byte
	Ack()
}

func (c *SimpleClient) Disconnect() {
	c.mu.Lock()
	c.subscriptions = make(map[string]subscription)
	c.mu.Unlock()

	c.client.Disconnect(_disconnectQuiesceMs)
}

// Publish waits for the broker acknowledgement no longer than ctx allows.
func (c *SimpleClient) Publish(ctx context.Context, topic string, payload []byte) error {
	timeout := _publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return fmt.Errorf("publishing to topic %s: %w", topic, context.DeadlineExceeded)
	}

	token := c.client.Publish(topic, _defaultQoS, _defaultRetained, payload)
	if !token.WaitTimeout(timeout) {
		if ctx.Err() != nil {
			return fmt.Errorf("publishing to topic %s: %w", topic, ctx.Err())
		}
		return fmt.Errorf("publishing to topic %s: %w", topic, ErrPublishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("publishing to topic %s: %w", topic, token.Error())
	}
	return nil
}
