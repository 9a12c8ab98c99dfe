package servicetest

import (
	"os"
	"time"

	"github.com/edupay/upiverify/lib/service"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/ziflex/lecho/v3"
)

// Config returns a service configuration with short timings suitable for tests.
func Config() *service.Config {
	return &service.Config{
		PayeeAddress:          "merchant@upi",
		PayeeName:             "Test Merchant",
		MinAmount:             decimal.NewFromInt(1),
		MaxAmount:             decimal.NewFromInt(100000),
		RequestTTL:            300 * time.Second,
		PollInterval:          10 * time.Millisecond,
		PollTimeout:           time.Second,
		StatusCheckMaxElapsed: 20 * time.Millisecond,
		SyncFirstCheck:        false,
		FirstCheckTimeout:     100 * time.Millisecond,
		IdempotencyKeyTTL:     time.Hour,
		MaxEvidenceSize:       1 << 20,
	}
}

// Harness bundles a PaymentService with its in-memory collaborators.
type Harness struct {
	Svc      *service.PaymentService
	Store    *MemoryStore
	Rail     *Rail
	Notifier *RecordingNotifier
	Clock    *Clock
}

func NewHarness(c *service.Config) *Harness {
	h := &Harness{
		Store:    NewMemoryStore(),
		Rail:     NewRail(),
		Notifier: &RecordingNotifier{},
		Clock:    NewClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
	}
	logger := lecho.New(os.Stdout, lecho.WithLevel(log.DEBUG), lecho.WithTimestamp())
	h.Svc = service.NewPaymentService(c, h.Store, h.Rail, logger)
	h.Svc.Notifiers = []service.Notifier{h.Notifier}
	h.Svc.Clock = h.Clock.Now
	return h
}
