package servicetest

import (
	"context"
	"sync"
	"time"

	"github.com/edupay/upiverify/db/models"
)

// RecordingNotifier remembers every notification. Err, when set, is returned
// after recording.
type RecordingNotifier struct {
	mu       sync.Mutex
	Err      error
	received []models.PaymentRequest
}

func (n *RecordingNotifier) Notify(ctx context.Context, req models.PaymentRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, req)
	return n.Err
}

func (n *RecordingNotifier) Received() []models.PaymentRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.PaymentRequest{}, n.received...)
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
