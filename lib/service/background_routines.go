package service

import (
	"context"
	"errors"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/rail"
	"github.com/getsentry/sentry-go"
)

const sweepBatchSize = 500

// StartPendingVerificationRoutine resumes polling for every request left in
// Verifying by a previous process.
func (svc *PaymentService) StartPendingVerificationRoutine(ctx context.Context) error {
	pending, err := svc.Store.FindPaymentRequests(ctx, PaymentRequestFilter{Status: common.StatusVerifying})
	if err != nil {
		return err
	}
	svc.Logger.Infof("Found %d payment requests awaiting verification", len(pending))
	for _, req := range pending {
		if _, err := svc.StartPolling(ctx, req.ID); err != nil {
			svc.Logger.Errorf("Could not resume polling id:%s: %v", req.ID, err)
		}
	}
	return nil
}

// StartExpirySweepRoutine expires overdue AwaitingProof requests every
// ExpirySweepInterval until ctx is cancelled.
func (svc *PaymentService) StartExpirySweepRoutine(ctx context.Context) error {
	if svc.Config.ExpirySweepInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(svc.Config.ExpirySweepInterval)
	defer ticker.Stop()
	svc.Logger.Infof("Starting expiry sweep every %s", svc.Config.ExpirySweepInterval)
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case <-ticker.C:
			if _, err := svc.ExpireOverdue(ctx); err != nil {
				svc.Logger.Errorf("Expiry sweep failed: %v", err)
				sentry.CaptureException(err)
			}
		}
	}
}

// ExpireOverdue expires every AwaitingProof request past its deadline and
// returns how many were moved to Expired.
func (svc *PaymentService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := svc.Store.FindPaymentRequests(ctx, PaymentRequestFilter{
		Status:        common.StatusAwaitingProof,
		ExpiresBefore: svc.now(),
		Limit:         sweepBatchSize,
	})
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, candidate := range overdue {
		req, err := svc.Expire(ctx, candidate.ID)
		if err != nil {
			// a proof may have won the race
			if errors.Is(err, ErrStaleStatus) || errors.Is(err, ErrIllegalTransition) {
				continue
			}
			return expired, err
		}
		if req.Status == common.StatusExpired {
			expired++
		}
	}
	if expired > 0 {
		svc.Logger.Infof("Expiry sweep expired %d payment requests", expired)
	}
	return expired, nil
}

type ReconcileReport struct {
	Checked  int
	Verified int
	Rejected int
	Pending  int
	Failed   int
}

// ReconcileVerifying asks the rail once for every request that has been
// Verifying for longer than olderThan and finalizes the authoritative answers.
func (svc *PaymentService) ReconcileVerifying(ctx context.Context, olderThan time.Duration) (ReconcileReport, error) {
	report := ReconcileReport{}
	stale, err := svc.Store.FindPaymentRequests(ctx, PaymentRequestFilter{
		Status:        common.StatusVerifying,
		UpdatedBefore: svc.now().Add(-olderThan),
	})
	if err != nil {
		return report, err
	}
	for _, req := range stale {
		report.Checked++
		result, err := svc.Rail.CheckStatus(ctx, req.UpstreamRequestID)
		if err != nil {
			svc.Metrics.ObserveStatusCheckError()
			svc.Logger.Errorf("Reconciliation status check failed id:%s: %v", req.ID, err)
			report.Failed++
			continue
		}
		if result.Status == rail.StatusPending {
			report.Pending++
			continue
		}
		finalized, err := svc.Finalize(ctx, req.ID, result)
		if err != nil && !errors.Is(err, ErrRequestAlreadyFinalized) {
			svc.Logger.Errorf("Reconciliation could not finalize id:%s: %v", req.ID, err)
			report.Failed++
			continue
		}
		switch finalized.Status {
		case common.StatusVerified:
			report.Verified++
		case common.StatusRejected:
			report.Rejected++
		}
	}
	return report, nil
}

// NeedsReview lists Verifying requests nobody is polling anymore, typically
// after a verification timeout.
func (svc *PaymentService) NeedsReview(ctx context.Context) ([]models.PaymentRequest, error) {
	verifying, err := svc.Store.FindPaymentRequests(ctx, PaymentRequestFilter{Status: common.StatusVerifying})
	if err != nil {
		return nil, err
	}
	result := []models.PaymentRequest{}
	for _, req := range verifying {
		if !svc.IsPolling(req.ID) {
			result = append(result, req)
		}
	}
	return result, nil
}

// SubscribePaymentEvents returns a buffered channel receiving every terminal
// payment request and a func to stop the subscription.
func (svc *PaymentService) SubscribePaymentEvents() (chan models.PaymentRequest, func()) {
	ch := make(chan models.PaymentRequest, 100)
	subId := svc.PaymentPubSub.Subscribe(common.PaymentEventTopic, ch)
	return ch, func() {
		svc.PaymentPubSub.Unsubscribe(subId, common.PaymentEventTopic)
	}
}
