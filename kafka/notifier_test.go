package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/service"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNotifierPublishesKeyedEvent(t *testing.T) {
	writer := &recordingWriter{}
	notifier := &Notifier{Writer: writer}

	err := notifier.Notify(context.Background(), models.PaymentRequest{
		ID:              "req-1",
		Amount:          decimal.RequireFromString("499.5"),
		Status:          common.StatusRejected,
		RejectionReason: "amount mismatch",
	})
	assert.NoError(t, err)
	assert.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "req-1", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "status", Value: []byte("rejected")}}, msg.Headers)
	event := service.PaymentEvent{}
	assert.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "499.50", event.Amount)
	assert.Equal(t, "amount mismatch", event.RejectionReason)

	assert.NoError(t, notifier.Close())
	assert.True(t, writer.closed)
}

func TestNotifierReturnsWriteError(t *testing.T) {
	notifier := &Notifier{Writer: &recordingWriter{err: errors.New("leader not available")}}
	err := notifier.Notify(context.Background(), models.PaymentRequest{ID: "req-1", Status: common.StatusVerified})
	assert.EqualError(t, err, "leader not available")
}
