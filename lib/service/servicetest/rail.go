package servicetest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/edupay/upiverify/rail"
)

var ErrRailDown = errors.New("rail unavailable")

// Rail is a scriptable rail.Client. Status answers are consumed in order;
// once the script is exhausted the Fallback answer repeats.
type Rail struct {
	mu sync.Mutex

	CreateErr error
	Fallback  StatusAnswer

	script  []StatusAnswer
	created []rail.PaymentIntentRequest
	checks  int
}

type StatusAnswer struct {
	Result *rail.StatusResult
	Err    error
}

func NewRail() *Rail {
	return &Rail{Fallback: Pending()}
}

var _ rail.Client = (*Rail)(nil)

func Pending() StatusAnswer {
	return StatusAnswer{Result: &rail.StatusResult{Status: rail.StatusPending}}
}

func Verified() StatusAnswer {
	return StatusAnswer{Result: &rail.StatusResult{Status: rail.StatusVerified}}
}

func Rejected(reason string) StatusAnswer {
	return StatusAnswer{Result: &rail.StatusResult{Status: rail.StatusRejected, Reason: reason}}
}

func Failing(err error) StatusAnswer {
	return StatusAnswer{Err: err}
}

// Script appends answers returned by the next CheckStatus calls.
func (r *Rail) Script(answers ...StatusAnswer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.script = append(r.script, answers...)
}

func (r *Rail) CreateUpstreamPayment(ctx context.Context, req rail.PaymentIntentRequest) (*rail.UpstreamPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	r.created = append(r.created, req)
	return &rail.UpstreamPayment{UpstreamRequestID: fmt.Sprintf("up_%d", len(r.created))}, nil
}

func (r *Rail) CheckStatus(ctx context.Context, upstreamRequestID string) (*rail.StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks++
	answer := r.Fallback
	if len(r.script) > 0 {
		answer = r.script[0]
		r.script = r.script[1:]
	}
	if answer.Err != nil {
		return nil, answer.Err
	}
	result := *answer.Result
	return &result, nil
}

func (r *Rail) Created() []rail.PaymentIntentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]rail.PaymentIntentRequest{}, r.created...)
}

func (r *Rail) Checks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checks
}
