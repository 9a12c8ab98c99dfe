package rail

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/labstack/gommon/random"
)

// SandboxClient is an in-process rail for local development.
// Payments verify once verifyAfter has passed since creation, unless the
// note starts with rejectPrefix.
type SandboxClient struct {
	mu           sync.Mutex
	payments     map[string]sandboxPayment
	verifyAfter  time.Duration
	rejectPrefix string
	now          func() time.Time
}

type sandboxPayment struct {
	createdAt time.Time
	reject    bool
}

func NewSandboxClient(verifyAfter time.Duration, rejectPrefix string) *SandboxClient {
	return &SandboxClient{
		payments:     make(map[string]sandboxPayment),
		verifyAfter:  verifyAfter,
		rejectPrefix: rejectPrefix,
		now:          time.Now,
	}
}

func (sc *SandboxClient) CreateUpstreamPayment(ctx context.Context, req PaymentIntentRequest) (*UpstreamPayment, error) {
	id := "sbx_" + random.String(20, random.Alphanumeric)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.payments[id] = sandboxPayment{
		createdAt: sc.now(),
		reject:    sc.rejectPrefix != "" && strings.HasPrefix(req.Note, sc.rejectPrefix),
	}
	return &UpstreamPayment{UpstreamRequestID: id}, nil
}

func (sc *SandboxClient) CheckStatus(ctx context.Context, upstreamRequestID string) (*StatusResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	p, ok := sc.payments[upstreamRequestID]
	if !ok {
		return nil, ErrUnknownPayment
	}
	if sc.now().Sub(p.createdAt) < sc.verifyAfter {
		return &StatusResult{Status: StatusPending}, nil
	}
	if p.reject {
		return &StatusResult{Status: StatusRejected, Reason: "rejected by sandbox"}, nil
	}
	return &StatusResult{Status: StatusVerified}, nil
}
