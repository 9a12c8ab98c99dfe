package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/rail"
)

type PollResult struct {
	Status common.PaymentStatus
	// nil on Verified, ErrVerificationRejected, ErrVerificationTimedOut, ErrPollCancelled or a lookup error
	Err error
}

// PollHandle references one background verification poll.
type PollHandle struct {
	RequestID string

	cancel context.CancelFunc
	done   chan struct{}
	result PollResult
}

func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Result returns the poll result once the poll finished.
func (h *PollHandle) Result() (PollResult, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return PollResult{}, false
	}
}

// Wait blocks until the poll finished or ctx is done.
func (h *PollHandle) Wait(ctx context.Context) (PollResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return PollResult{}, ctx.Err()
	}
}

// Cancel stops future ticks. The request status is not touched.
func (h *PollHandle) Cancel() {
	h.cancel()
}

type pollRegistry struct {
	mu      sync.Mutex
	handles map[string]*PollHandle
}

func newPollRegistry() *pollRegistry {
	return &pollRegistry{handles: make(map[string]*PollHandle)}
}

// StartPolling starts a background poll for a Verifying request using the configured
// interval and timeout. If one is already running for id, that handle is returned.
func (svc *PaymentService) StartPolling(ctx context.Context, id string) (*PollHandle, error) {
	req, err := svc.Store.FindPaymentRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status.IsFinalized() {
		return nil, ErrRequestAlreadyFinalized
	}
	if req.Status != common.StatusVerifying {
		return nil, fmt.Errorf("%w: nothing to verify in status %s", ErrIllegalTransition, req.Status)
	}

	svc.polls.mu.Lock()
	defer svc.polls.mu.Unlock()
	if h, ok := svc.polls.handles[id]; ok {
		return h, nil
	}
	pollCtx, cancel := context.WithCancel(svc.baseCtx)
	h := &PollHandle{
		RequestID: id,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	svc.polls.handles[id] = h
	svc.pollWg.Add(1)
	go func() {
		defer svc.pollWg.Done()
		status, err := svc.PollUntilResolved(pollCtx, id, svc.Config.PollInterval, svc.Config.PollTimeout)
		cancel()
		svc.polls.mu.Lock()
		if svc.polls.handles[id] == h {
			delete(svc.polls.handles, id)
		}
		svc.polls.mu.Unlock()
		h.result = PollResult{Status: status, Err: err}
		close(h.done)
	}()
	svc.Logger.Infof("Started verification polling: id:%s interval:%s timeout:%s", id, svc.Config.PollInterval, svc.Config.PollTimeout)
	return h, nil
}

// CancelPolling stops the poll for id. It is a no-op when nothing is polling.
func (svc *PaymentService) CancelPolling(id string) {
	svc.polls.mu.Lock()
	h, ok := svc.polls.handles[id]
	svc.polls.mu.Unlock()
	if ok {
		svc.Logger.Infof("Cancelling verification polling: id:%s", id)
		h.Cancel()
	}
}

// PollHandle returns the running poll for id, if any.
func (svc *PaymentService) PollHandle(id string) (*PollHandle, bool) {
	svc.polls.mu.Lock()
	defer svc.polls.mu.Unlock()
	h, ok := svc.polls.handles[id]
	return h, ok
}

func (svc *PaymentService) IsPolling(id string) bool {
	svc.polls.mu.Lock()
	defer svc.polls.mu.Unlock()
	_, ok := svc.polls.handles[id]
	return ok
}

// PollUntilResolved checks the authoritative status every interval until the request
// is finalized, timeout elapses (ErrVerificationTimedOut) or ctx is cancelled (ErrPollCancelled).
// Neither timeout nor cancellation changes the stored status.
func (svc *PaymentService) PollUntilResolved(ctx context.Context, id string, interval, timeout time.Duration) (common.PaymentStatus, error) {
	if interval <= 0 || timeout <= 0 {
		return "", fmt.Errorf("poll interval and timeout must be positive, got %s and %s", interval, timeout)
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ticks := 0
	for {
		ticks++
		status, done, err := svc.pollOnce(pollCtx, id, interval)
		if done {
			svc.recordPollOutcome(id, status, err, ticks)
			return status, err
		}
		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				err = ErrPollCancelled
			} else {
				err = ErrVerificationTimedOut
			}
			svc.recordPollOutcome(id, status, err, ticks)
			return status, err
		case <-ticker.C:
		}
	}
}

// pollOnce performs one tick. The request lock is only taken inside the store
// read and the finalizing transition, never across the rail call.
func (svc *PaymentService) pollOnce(ctx context.Context, id string, interval time.Duration) (common.PaymentStatus, bool, error) {
	unlock := svc.locks.Lock(id)
	req, err := svc.Store.FindPaymentRequest(ctx, id)
	unlock()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", true, err
		}
		svc.Logger.Errorf("Could not load payment request for polling id:%s: %v", id, err)
		return common.StatusVerifying, false, err
	}
	if done, err := resolvedStatusErr(req.Status); done {
		return req.Status, true, err
	}

	result, err := svc.checkStatusWithBackoff(ctx, req.UpstreamRequestID, interval)
	if err != nil {
		if ctx.Err() == nil {
			svc.Logger.Errorf("Status check failed for payment request id:%s: %v", id, err)
		}
		if errors.Is(err, rail.ErrUnknownPayment) {
			return req.Status, true, err
		}
		return req.Status, false, err
	}
	if result.Status == rail.StatusPending {
		return req.Status, false, nil
	}

	finalized, err := svc.Finalize(context.WithoutCancel(ctx), id, result)
	if err != nil && !errors.Is(err, ErrRequestAlreadyFinalized) {
		return req.Status, false, err
	}
	_, err = resolvedStatusErr(finalized.Status)
	return finalized.Status, true, err
}

func resolvedStatusErr(status common.PaymentStatus) (bool, error) {
	switch status {
	case common.StatusVerified:
		return true, nil
	case common.StatusRejected:
		return true, ErrVerificationRejected
	case common.StatusExpired:
		return true, ErrRequestExpired
	case common.StatusVerifying:
		return false, nil
	default:
		return true, fmt.Errorf("%w: nothing to verify in status %s", ErrIllegalTransition, status)
	}
}

// checkStatusWithBackoff retries infrastructure failures for at most StatusCheckMaxElapsed.
func (svc *PaymentService) checkStatusWithBackoff(ctx context.Context, upstreamID string, interval time.Duration) (*rail.StatusResult, error) {
	expontentialBackoff := backoff.NewExponentialBackOff()
	expontentialBackoff.InitialInterval = interval / 10
	expontentialBackoff.MaxInterval = interval
	expontentialBackoff.MaxElapsedTime = svc.Config.StatusCheckMaxElapsed

	var result *rail.StatusResult
	err := backoff.Retry(func() error {
		var err error
		result, err = svc.Rail.CheckStatus(ctx, upstreamID)
		if err != nil {
			svc.Metrics.ObserveStatusCheckError()
			if errors.Is(err, rail.ErrUnknownPayment) {
				return backoff.Permanent(err)
			}
		}
		return err
	}, backoff.WithContext(expontentialBackoff, ctx))
	return result, err
}

func (svc *PaymentService) recordPollOutcome(id string, status common.PaymentStatus, err error, ticks int) {
	outcome := "verified"
	switch {
	case errors.Is(err, ErrVerificationRejected):
		outcome = "rejected"
	case errors.Is(err, ErrVerificationTimedOut):
		outcome = "timed_out"
		svc.Logger.Warnf("Verification timed out, needs manual review: id:%s ticks:%d", id, ticks)
	case errors.Is(err, ErrPollCancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	svc.Metrics.ObservePollOutcome(outcome)
	svc.Logger.Infof("Verification polling stopped: id:%s status:%s outcome:%s ticks:%d", id, status, outcome, ticks)
}
