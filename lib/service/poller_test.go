package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/lib/service/servicetest"
	"github.com/edupay/upiverify/rail"
)

func (suite *PaymentServiceTestSuite) TestPollVerifiedOnFirstCheck() {
	req := suite.verifyingRequest()
	suite.h.Rail.Script(servicetest.Verified())

	status, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.NoError(err)
	suite.Equal(common.StatusVerified, status)
	suite.Equal(common.StatusVerified, suite.stored(req.ID).Status)
	suite.False(suite.stored(req.ID).FinalizedAt.IsZero())

	received := suite.h.Notifier.Received()
	suite.Require().Len(received, 1)
	suite.Equal(req.ID, received[0].ID)
	suite.Equal(common.StatusVerified, received[0].Status)
}

func (suite *PaymentServiceTestSuite) TestPollRejected() {
	req := suite.verifyingRequest()
	suite.h.Rail.Script(servicetest.Pending(), servicetest.Rejected("utr mismatch"))

	status, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.ErrorIs(err, service.ErrVerificationRejected)
	suite.Equal(common.StatusRejected, status)

	stored := suite.stored(req.ID)
	suite.Equal(common.StatusRejected, stored.Status)
	suite.Equal("utr mismatch", stored.RejectionReason)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestPollTimeoutLeavesVerifying() {
	req := suite.verifyingRequest()
	for i := 0; i < 10; i++ {
		suite.h.Rail.Script(servicetest.Pending())
	}

	status, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, 100*time.Millisecond)
	suite.ErrorIs(err, service.ErrVerificationTimedOut)
	suite.Equal(common.StatusVerifying, status)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
	suite.GreaterOrEqual(suite.h.Rail.Checks(), 2)
	suite.Empty(suite.h.Notifier.Received())

	needsReview, err := suite.h.Svc.NeedsReview(suite.ctx)
	suite.NoError(err)
	suite.Len(needsReview, 1)
}

func (suite *PaymentServiceTestSuite) TestPollRetriesTransientErrors() {
	req := suite.verifyingRequest()
	suite.h.Rail.Script(
		servicetest.Failing(servicetest.ErrRailDown),
		servicetest.Failing(servicetest.ErrRailDown),
		servicetest.Verified(),
	)

	status, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.NoError(err)
	suite.Equal(common.StatusVerified, status)
}

func (suite *PaymentServiceTestSuite) TestPollUnknownUpstreamStops() {
	req := suite.verifyingRequest()
	suite.h.Rail.Fallback = servicetest.Failing(rail.ErrUnknownPayment)

	status, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.ErrorIs(err, rail.ErrUnknownPayment)
	suite.Equal(common.StatusVerifying, status)
	suite.Equal(1, suite.h.Rail.Checks())
}

func (suite *PaymentServiceTestSuite) TestPollCancelled() {
	req := suite.verifyingRequest()
	ctx, cancel := context.WithCancel(suite.ctx)
	time.AfterFunc(30*time.Millisecond, cancel)

	status, err := suite.h.Svc.PollUntilResolved(ctx, req.ID, 10*time.Millisecond, time.Minute)
	suite.ErrorIs(err, service.ErrPollCancelled)
	suite.Equal(common.StatusVerifying, status)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestPollNotVerifying() {
	req := suite.createRequest(10, "")

	_, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.ErrorIs(err, service.ErrIllegalTransition)
	suite.Zero(suite.h.Rail.Checks())

	_, err = suite.h.Svc.StartPolling(suite.ctx, req.ID)
	suite.ErrorIs(err, service.ErrIllegalTransition)
}

func (suite *PaymentServiceTestSuite) TestPollNonPositiveInterval() {
	req := suite.verifyingRequest()

	for _, interval := range []time.Duration{0, -time.Millisecond} {
		suite.NotPanics(func() {
			_, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, interval, time.Second)
			suite.Error(err)
		})
	}
	_, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, 0)
	suite.Error(err)
	suite.Zero(suite.h.Rail.Checks())
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestStartPolling() {
	req := suite.verifyingRequest()
	suite.h.Rail.Script(servicetest.Pending(), servicetest.Pending(), servicetest.Verified())

	handle, err := suite.h.Svc.StartPolling(suite.ctx, req.ID)
	suite.Require().NoError(err)
	again, err := suite.h.Svc.StartPolling(suite.ctx, req.ID)
	suite.Require().NoError(err)
	suite.Same(handle, again)

	ctx, cancel := context.WithTimeout(suite.ctx, 5*time.Second)
	defer cancel()
	result, err := handle.Wait(ctx)
	suite.Require().NoError(err)
	suite.NoError(result.Err)
	suite.Equal(common.StatusVerified, result.Status)
	suite.Eventually(func() bool { return !suite.h.Svc.IsPolling(req.ID) }, time.Second, 5*time.Millisecond)

	_, err = suite.h.Svc.StartPolling(suite.ctx, req.ID)
	suite.ErrorIs(err, service.ErrRequestAlreadyFinalized)
}

func (suite *PaymentServiceTestSuite) TestCancelPolling() {
	req := suite.verifyingRequest()

	handle, err := suite.h.Svc.StartPolling(suite.ctx, req.ID)
	suite.Require().NoError(err)
	suite.True(suite.h.Svc.IsPolling(req.ID))

	suite.h.Svc.CancelPolling(req.ID)
	suite.h.Svc.CancelPolling(req.ID)
	<-handle.Done()

	result, ok := handle.Result()
	suite.True(ok)
	suite.ErrorIs(result.Err, service.ErrPollCancelled)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
	suite.False(suite.h.Svc.IsPolling(req.ID))
	suite.h.Svc.CancelPolling("missing")
}

func (suite *PaymentServiceTestSuite) TestConcurrentFinalizationNotifiesOnce() {
	req := suite.verifyingRequest()
	suite.h.Rail.Fallback = servicetest.Verified()

	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
		}()
		go func() {
			defer wg.Done()
			_ = suite.h.Svc.ProcessRailStatusUpdate(suite.ctx, rail.StatusUpdate{
				UpstreamRequestID: req.UpstreamRequestID,
				Status:            rail.StatusVerified,
			})
		}()
	}
	wg.Wait()

	suite.Equal(common.StatusVerified, suite.stored(req.ID).Status)
	suite.Len(suite.h.Notifier.Received(), 1)
}
