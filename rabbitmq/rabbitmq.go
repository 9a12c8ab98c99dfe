package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/rail"
	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of heap memory.
// Instead of allocating new memory everytime we need to encode a payment event we
// reuse buffers from this buffer pool.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	railStatusRoutingKey = "payment.status.#"
)

type (
	RailStatusHandler       = func(ctx context.Context, update rail.StatusUpdate) error
	SubscribeToPaymentsFunc = func() (payments chan models.PaymentRequest, unsubscribe func())
	EncodePaymentFunc       = func(ctx context.Context, w io.Writer, req models.PaymentRequest) error
)

type Client interface {
	SubscribeToRailStatusUpdates(context.Context, RailStatusHandler) error
	StartPublishPayments(context.Context, SubscribeToPaymentsFunc, EncodePaymentFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	railStatusConsumerQueueName string
	railStatusQueueOptions      QueueOptions
	railStatusExchange          string
	paymentExchange             string
}

type ClientOption = func(client *DefaultClient)

func WithRailStatusExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.railStatusExchange = exchange
	}
}

func WithRailStatusConsumerQueueName(name string) ClientOption {
	return func(client *DefaultClient) {
		client.railStatusConsumerQueueName = name
	}
}

func WithRailStatusQueueOptions(opts QueueOptions) ClientOption {
	return func(client *DefaultClient) {
		client.railStatusQueueOptions = opts
	}
}

func WithPaymentExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.paymentExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient: amqpClient,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		railStatusConsumerQueueName: "upiverify_rail_status_consumer",
		railStatusQueueOptions:      DefaultQueueOptions(),
		railStatusExchange:          "rail_status",
		paymentExchange:             "upiverify_payment",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// SubscribeToRailStatusUpdates consumes authoritative status callbacks of the
// payment rail until ctx is cancelled.
func (client *DefaultClient) SubscribeToRailStatusUpdates(ctx context.Context, handler RailStatusHandler) error {
	deliveryChan, err := client.amqpClient.Listen(ctx, client.railStatusExchange, railStatusRoutingKey, client.railStatusConsumerQueueName, client.railStatusQueueOptions)
	if err != nil {
		return err
	}

	client.logger.Info("Starting rail status consumer loop")
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case delivery, ok := <-deliveryChan:
			if !ok {
				return fmt.Errorf("Disconnected from RabbitMQ")
			}
			var update rail.StatusUpdate

			err := json.Unmarshal(delivery.Body, &update)
			if err != nil || update.UpstreamRequestID == "" {
				if err == nil {
					err = fmt.Errorf("rail status update without upstream id: %s", delivery.Body)
				}
				captureErr(client.logger, err)

				// If we can't even Unmarshall the message we are dealing with
				// badly formatted events. In that case we simply Nack the message
				// and explicitly do not requeue it.
				err = delivery.Nack(false, false)
				if err != nil {
					captureErr(client.logger, err)
				}

				continue
			}

			err = handler(ctx, update)
			if err != nil {
				captureErr(client.logger, err)

				// requeue once so a transient database error does not lose the
				// authoritative answer, the queue delivery limit stops endless loops
				err := delivery.Nack(false, !delivery.Redelivered)
				if err != nil {
					captureErr(client.logger, err)
				}

				continue
			}

			err = delivery.Ack(false)
			if err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

// StartPublishPayments publishes every terminal payment request to the payment
// exchange with routing key payment.<status>.
func (client *DefaultClient) StartPublishPayments(ctx context.Context, subscribeFunc SubscribeToPaymentsFunc, payloadFunc EncodePaymentFunc) error {
	// durable, not auto-deleted, not internal, wait for the broker
	err := client.amqpClient.ExchangeDeclare(client.paymentExchange, topicExchange, true, false, false, false, nil)
	if err != nil {
		return err
	}

	client.logger.Info("Starting rabbitmq payment publisher")

	payments, unsubscribe := subscribeFunc()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case payment, ok := <-payments:
			if !ok {
				return nil
			}
			err = client.publishToPaymentExchange(ctx, payment, payloadFunc)
			if err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) publishToPaymentExchange(ctx context.Context, payment models.PaymentRequest, payloadFunc EncodePaymentFunc) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err := payloadFunc(ctx, payload, payment)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("payment.%s", payment.Status)

	err = client.amqpClient.PublishWithContext(ctx,
		client.paymentExchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Successfully published payment request to rabbitmq with id %s", payment.ID)

	return nil
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
