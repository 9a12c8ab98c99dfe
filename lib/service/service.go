package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/rail"
	"github.com/ziflex/lecho/v3"
)

// PaymentStore persists payment requests and their proofs.
type PaymentStore interface {
	InsertPaymentRequest(ctx context.Context, req *models.PaymentRequest) error
	// FindPaymentRequest returns ErrNotFound for unknown ids. The proof is loaded when present.
	FindPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error)
	FindPaymentRequestByIdempotencyKey(ctx context.Context, key string) (*models.PaymentRequest, error)
	FindPaymentRequestByUpstreamID(ctx context.Context, upstreamID string) (*models.PaymentRequest, error)
	FindPaymentRequests(ctx context.Context, filter PaymentRequestFilter) ([]models.PaymentRequest, error)
	// AttachProof stores req.Proof and the new req.Status atomically,
	// provided the stored status still equals from (ErrStaleStatus otherwise).
	AttachProof(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error
	// UpdateStatus writes req.Status if the stored status still equals from (ErrStaleStatus otherwise).
	UpdateStatus(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error
}

type PaymentRequestFilter struct {
	Status        common.PaymentStatus
	ExpiresBefore time.Time
	UpdatedBefore time.Time
	Limit         int
}

// Notifier is a best-effort side channel for terminal payment states.
type Notifier interface {
	Notify(ctx context.Context, req models.PaymentRequest) error
}

// EvidenceStore keeps uploaded proof attachments and returns a reference to them.
type EvidenceStore interface {
	StoreEvidence(ctx context.Context, requestID string, attachment *Attachment) (string, error)
}

// IdempotencyStore reserves client idempotency keys across instances.
type IdempotencyStore interface {
	// Reserve claims key for requestID. When the key is already held it returns
	// the owning request id and reserved=false.
	Reserve(ctx context.Context, key, requestID string, ttl time.Duration) (owner string, reserved bool, err error)
	Release(ctx context.Context, key string) error
}

type Attachment struct {
	Reference   string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (a *Attachment) present() bool {
	return a != nil && (a.Reference != "" || a.Body != nil)
}

type PaymentService struct {
	Config          *Config
	Store           PaymentStore
	Rail            rail.Client
	Logger          *lecho.Logger
	Notifiers       []Notifier
	Evidence        EvidenceStore
	IdempotencyKeys IdempotencyStore
	PaymentPubSub   *Pubsub
	Metrics         *Metrics
	Clock           func() time.Time

	locks   *requestLocks
	polls   *pollRegistry
	baseCtx context.Context
	stop    context.CancelFunc
	pollWg  sync.WaitGroup
}

func NewPaymentService(c *Config, store PaymentStore, railClient rail.Client, logger *lecho.Logger) *PaymentService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PaymentService{
		Config:        c,
		Store:         store,
		Rail:          railClient,
		Logger:        logger,
		PaymentPubSub: NewPubsub(),
		Clock:         time.Now,
		locks:         newRequestLocks(),
		polls:         newPollRegistry(),
		baseCtx:       ctx,
		stop:          cancel,
	}
}

func (svc *PaymentService) now() time.Time {
	if svc.Clock == nil {
		return time.Now()
	}
	return svc.Clock()
}

// Shutdown cancels every running poll and waits for them to return.
// Requests being polled stay in Verifying and are resumed on the next start.
func (svc *PaymentService) Shutdown() {
	svc.stop()
	svc.pollWg.Wait()
}

// GetStatus returns a read-only snapshot of the payment request.
func (svc *PaymentService) GetStatus(ctx context.Context, id string) (*models.PaymentRequest, error) {
	return svc.Store.FindPaymentRequest(ctx, id)
}

// Outcome translates a snapshot into what the caller is told. A Verifying
// request nobody polls anymore needs manual review.
func (svc *PaymentService) Outcome(req *models.PaymentRequest) common.Outcome {
	if req.Status == common.StatusVerifying && !svc.IsPolling(req.ID) {
		return common.OutcomeNeedsManualReview
	}
	return OutcomeFor(req, svc.now())
}

func OutcomeFor(req *models.PaymentRequest, now time.Time) common.Outcome {
	switch req.Status {
	case common.StatusVerified:
		return common.OutcomeSucceeded
	case common.StatusRejected:
		return common.OutcomeRejected
	case common.StatusExpired:
		return common.OutcomeExpired
	case common.StatusVerifying:
		return common.OutcomeStillWaiting
	default:
		if IsExpired(req, now) {
			return common.OutcomeExpired
		}
		return common.OutcomeStillWaiting
	}
}
