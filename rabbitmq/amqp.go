package rabbitmq

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultHeartbeat   = 10 * time.Second
	defaultLocale      = "en_US"
	defaultDialTimeout = 3 * time.Second

	topicExchange = "topic"
)

var errReconnecting = errors.New("amqp: trying to publish during reconnect")

type connectionEvent int

const (
	eventReconnected connectionEvent = iota
	eventGaveUp
)

type AMQPClient interface {
	// Listen declares queueName with opts, binds it to routingKey on the topic
	// exchange and returns its deliveries. The channel survives reconnects and
	// is closed once reconnecting is given up.
	Listen(ctx context.Context, exchange, routingKey, queueName string, opts QueueOptions) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

// QueueOptions describes a consumer queue. Deliveries are always acked manually.
type QueueOptions struct {
	// Durable queues survive a broker restart.
	Durable bool
	// Exclusive queues are bound to one connection, so only a single
	// instance receives updates. Shared queues spread them across instances.
	Exclusive bool
	// DeliveryLimit caps redeliveries of a requeued message, 0 disables it.
	DeliveryLimit int
}

func DefaultQueueOptions() QueueOptions {
	return QueueOptions{Durable: true, DeliveryLimit: 10}
}

func (opts QueueOptions) arguments() amqp.Table {
	if opts.DeliveryLimit <= 0 {
		return nil
	}
	return amqp.Table{"delivery-limit": opts.DeliveryLimit}
}

// reconnectingClient keeps one connection with separate consume and publish
// channels, so publisher flow control never stalls consumers.
type reconnectingClient struct {
	uri    string
	logger *lecho.Logger

	mu             sync.RWMutex
	conn           *amqp.Connection
	consumeChannel *amqp.Channel
	publishChannel *amqp.Channel
	closed         chan *amqp.Error

	listenersMu sync.Mutex
	listeners   []chan connectionEvent

	reconnecting atomic.Bool
}

type AMQPOption = func(client *reconnectingClient)

func WithAmqpLogger(logger *lecho.Logger) AMQPOption {
	return func(client *reconnectingClient) {
		client.logger = logger
	}
}

// DialAMQP connects to rabbitmq and keeps reconnecting in the background
// whenever the connection drops.
func DialAMQP(uri string, options ...AMQPOption) (AMQPClient, error) {
	client := &reconnectingClient{
		uri: uri,
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),
	}
	for _, opt := range options {
		opt(client)
	}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.watchConnection()
	return client, nil
}

func reconnectBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

func (c *reconnectingClient) connect() error {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    defaultLocale,
		Dial:      amqp.DefaultDial(defaultDialTimeout),
	})
	if err != nil {
		return err
	}
	consumeChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	publishChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	c.consumeChannel = consumeChannel
	c.publishChannel = publishChannel
	c.closed = closed
	return nil
}

// watchConnection redials after an unexpected close and tells every listener
// whether it worked. A close through Close ends it.
func (c *reconnectingClient) watchConnection() {
	for {
		c.mu.RLock()
		closed := c.closed
		c.mu.RUnlock()

		amqpErr, ok := <-closed
		if !ok || amqpErr == nil {
			return
		}
		c.logger.Errorf("amqp: connection lost: %v", amqpErr)

		c.reconnecting.Store(true)
		c.logger.Info("amqp: trying to reconnect...")
		err := backoff.Retry(c.connect, reconnectBackoff())
		c.reconnecting.Store(false)
		if err != nil {
			c.logger.Errorf("amqp: giving up reconnecting: %v", err)
			c.broadcast(eventGaveUp)
			return
		}
		c.logger.Info("amqp: successfully reconnected")
		c.broadcast(eventReconnected)
	}
}

func (c *reconnectingClient) broadcast(event connectionEvent) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	for _, listener := range c.listeners {
		select {
		case listener <- event:
		default:
			// listener stopped with its context
		}
	}
}

func (c *reconnectingClient) subscribe() chan connectionEvent {
	events := make(chan connectionEvent, 2)
	c.listenersMu.Lock()
	c.listeners = append(c.listeners, events)
	c.listenersMu.Unlock()
	return events
}

func (c *reconnectingClient) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn.Close()
}

func (c *reconnectingClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	// a short lived channel keeps declaration errors from closing the
	// consume or publish channel
	c.mu.RLock()
	ch, err := c.conn.Channel()
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *reconnectingClient) Listen(ctx context.Context, exchange, routingKey, queueName string, opts QueueOptions) (<-chan amqp.Delivery, error) {
	deliveries, err := c.consume(exchange, routingKey, queueName, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan amqp.Delivery)
	events := c.subscribe()

	// Forwards deliveries from whatever amqp channel is current. After a
	// reconnect the queue is declared and consumed again on the new channel.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case event := <-events:
				switch event {
				case eventReconnected:
					d, err := c.consume(exchange, routingKey, queueName, opts)
					if err != nil {
						c.logger.Errorf("amqp: could not resume consuming %s: %v", queueName, err)
						close(out)
						return
					}
					c.logger.Infof("amqp: consuming %s again after reconnect", queueName)
					deliveries = d
				case eventGaveUp:
					close(out)
					return
				}

			case delivery, ok := <-deliveries:
				if !ok {
					// nil blocks until the reconnect event hands out a new channel
					deliveries = nil
					continue
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *reconnectingClient) consume(exchange, routingKey, queueName string, opts QueueOptions) (<-chan amqp.Delivery, error) {
	c.mu.RLock()
	ch := c.consumeChannel
	c.mu.RUnlock()

	// the exchange is shared with the publishing side and always durable
	if err := ch.ExchangeDeclare(exchange, topicExchange, true, false, false, false, nil); err != nil {
		return nil, err
	}
	queue, err := ch.QueueDeclare(queueName, opts.Durable, false, opts.Exclusive, false, opts.arguments())
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(queue.Name, routingKey, exchange, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(queue.Name, "", false, opts.Exclusive, false, false, nil)
}

// PublishWithContext waits out a running reconnect before publishing.
func (c *reconnectingClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.reconnecting.Load() {
		err := backoff.Retry(func() error {
			if c.reconnecting.Load() {
				return errReconnecting
			}
			return nil
		}, backoff.WithContext(reconnectBackoff(), ctx))
		if err != nil {
			return err
		}
	}

	c.mu.RLock()
	ch := c.publishChannel
	c.mu.RUnlock()
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}
