package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/rail"
	"github.com/getsentry/sentry-go"
	"github.com/uptrace/bun"
)

const notifyTimeout = 10 * time.Second

// Finalize moves a Verifying request into the terminal state reported by the rail.
// result must be an authoritative answer; pending results are rejected.
func (svc *PaymentService) Finalize(ctx context.Context, id string, result *rail.StatusResult) (*models.PaymentRequest, error) {
	var to common.PaymentStatus
	switch result.Status {
	case rail.StatusVerified:
		to = common.StatusVerified
	case rail.StatusRejected:
		to = common.StatusRejected
	default:
		return nil, fmt.Errorf("%w: rail status %q is not terminal", ErrIllegalTransition, result.Status)
	}

	unlock := svc.locks.Lock(id)
	req, err := svc.Store.FindPaymentRequest(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	from := req.Status
	if err := svc.transition(req, to, svc.now()); err != nil {
		unlock()
		return req, err
	}
	if to == common.StatusRejected {
		req.RejectionReason = result.Reason
	}
	if err := svc.Store.UpdateStatus(ctx, req, from); err != nil {
		unlock()
		svc.Logger.Errorf("Could not persist finalization id:%s %s -> %s: %v", id, from, to, err)
		return nil, err
	}
	unlock()

	svc.Logger.Infof("Payment request finalized: id:%s status:%s", req.ID, req.Status)
	svc.announce(ctx, req)
	return req, nil
}

// Expire moves an AwaitingProof request whose window has lapsed into Expired.
// Calling it on an already expired request is a no-op; calling it on a request
// that is not expired yet returns it unchanged.
func (svc *PaymentService) Expire(ctx context.Context, id string) (*models.PaymentRequest, error) {
	unlock := svc.locks.Lock(id)
	req, err := svc.Store.FindPaymentRequest(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	expired, err := svc.expireLocked(ctx, req, svc.now())
	unlock()
	if err != nil {
		return req, err
	}
	if expired {
		svc.announce(ctx, req)
	}
	return req, nil
}

// expireLocked must be called with the request lock held.
func (svc *PaymentService) expireLocked(ctx context.Context, req *models.PaymentRequest, now time.Time) (bool, error) {
	if req.Status == common.StatusExpired || !IsExpired(req, now) {
		return false, nil
	}
	from := req.Status
	if err := svc.transition(req, common.StatusExpired, now); err != nil {
		return false, err
	}
	if err := svc.Store.UpdateStatus(ctx, req, from); err != nil {
		req.Status = from
		req.FinalizedAt = bun.NullTime{}
		return false, err
	}
	return true, nil
}

// announce runs the best-effort side channels for a terminal request.
// Failures are logged and reported, the terminal state stays.
func (svc *PaymentService) announce(ctx context.Context, req *models.PaymentRequest) {
	snapshot := *req
	if svc.PaymentPubSub != nil {
		svc.PaymentPubSub.Publish(common.PaymentEventTopic, snapshot)
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	for _, notifier := range svc.Notifiers {
		if err := notifier.Notify(notifyCtx, snapshot); err != nil {
			svc.Logger.Errorf("Notification failed for payment request id:%s status:%s: %v", req.ID, req.Status, err)
			sentry.CaptureException(err)
		}
	}
}

// ProcessRailStatusUpdate applies a status pushed by the rail.
func (svc *PaymentService) ProcessRailStatusUpdate(ctx context.Context, update rail.StatusUpdate) error {
	if update.Status == rail.StatusPending {
		return nil
	}
	req, err := svc.Store.FindPaymentRequestByUpstreamID(ctx, update.UpstreamRequestID)
	if errors.Is(err, ErrNotFound) {
		svc.Logger.Infof("Payment request not found. Ignoring. upstream_id:%s", update.UpstreamRequestID)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = svc.Finalize(ctx, req.ID, &rail.StatusResult{Status: update.Status, Reason: update.Reason})
	if errors.Is(err, ErrRequestAlreadyFinalized) {
		svc.Logger.Infof("Duplicate rail status update for finalized request id:%s", req.ID)
		return nil
	}
	return err
}
