package kafka

import (
	"bytes"
	"context"
	"time"

	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/service"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Notifier publishes terminal payment requests to a Kafka topic, keyed by
// request id so every event of a request lands on the same partition.
type Notifier struct {
	Writer MessageWriter
}

func NewNotifier(brokers []string, topic string) *Notifier {
	return &Notifier{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (n *Notifier) Notify(ctx context.Context, req models.PaymentRequest) error {
	payload := new(bytes.Buffer)
	if err := service.EncodePaymentEvent(ctx, payload, req); err != nil {
		return err
	}
	return n.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(req.ID),
		Value: payload.Bytes(),
		Headers: []kafka.Header{
			{Key: "status", Value: []byte(req.Status)},
		},
	})
}

func (n *Notifier) Close() error {
	return n.Writer.Close()
}
