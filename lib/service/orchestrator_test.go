package service_test

import (
	"errors"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/rail"
)

func (suite *PaymentServiceTestSuite) TestFinalizeRejectsPendingResult() {
	req := suite.verifyingRequest()

	_, err := suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusPending})
	suite.ErrorIs(err, service.ErrIllegalTransition)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestFinalizeAwaitingProofIsIllegal() {
	req := suite.createRequest(10, "")

	_, err := suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusVerified})
	suite.ErrorIs(err, service.ErrIllegalTransition)
	suite.Equal(common.StatusAwaitingProof, suite.stored(req.ID).Status)
	suite.Empty(suite.h.Notifier.Received())
}

func (suite *PaymentServiceTestSuite) TestFinalizedIsImmutable() {
	req := suite.verifyingRequest()
	_, err := suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusVerified})
	suite.Require().NoError(err)

	_, err = suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusRejected, Reason: "late"})
	suite.ErrorIs(err, service.ErrRequestAlreadyFinalized)
	_, err = suite.h.Svc.Expire(suite.ctx, req.ID)
	suite.NoError(err)

	stored := suite.stored(req.ID)
	suite.Equal(common.StatusVerified, stored.Status)
	suite.Empty(stored.RejectionReason)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestVerifyingNeverExpires() {
	req := suite.verifyingRequest()
	suite.h.Clock.Advance(time.Hour)

	_, err := suite.h.Svc.Expire(suite.ctx, req.ID)
	suite.ErrorIs(err, service.ErrIllegalTransition)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)

	expired, err := suite.h.Svc.ExpireOverdue(suite.ctx)
	suite.NoError(err)
	suite.Zero(expired)
}

func (suite *PaymentServiceTestSuite) TestExpireIsIdempotent() {
	req := suite.createRequest(10, "")

	notYet, err := suite.h.Svc.Expire(suite.ctx, req.ID)
	suite.Require().NoError(err)
	suite.Equal(common.StatusAwaitingProof, notYet.Status)

	suite.h.Clock.Advance(301 * time.Second)
	for i := 0; i < 3; i++ {
		expired, err := suite.h.Svc.Expire(suite.ctx, req.ID)
		suite.Require().NoError(err)
		suite.Equal(common.StatusExpired, expired.Status)
	}
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestNotifierFailureKeepsTerminalState() {
	suite.h.Notifier.Err = errors.New("webhook down")
	req := suite.verifyingRequest()

	finalized, err := suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusVerified})
	suite.Require().NoError(err)
	suite.Equal(common.StatusVerified, finalized.Status)
	suite.Equal(common.StatusVerified, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestTerminalEventsArePublished() {
	events, unsubscribe := suite.h.Svc.SubscribePaymentEvents()
	defer unsubscribe()
	req := suite.verifyingRequest()

	_, err := suite.h.Svc.Finalize(suite.ctx, req.ID, &rail.StatusResult{Status: rail.StatusRejected, Reason: "no such utr"})
	suite.Require().NoError(err)

	select {
	case event := <-events:
		suite.Equal(req.ID, event.ID)
		suite.Equal(common.StatusRejected, event.Status)
	case <-time.After(time.Second):
		suite.Fail("no payment event published")
	}
}

func (suite *PaymentServiceTestSuite) TestProcessRailStatusUpdate() {
	req := suite.verifyingRequest()

	suite.NoError(suite.h.Svc.ProcessRailStatusUpdate(suite.ctx, rail.StatusUpdate{UpstreamRequestID: req.UpstreamRequestID, Status: rail.StatusPending}))
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)

	suite.NoError(suite.h.Svc.ProcessRailStatusUpdate(suite.ctx, rail.StatusUpdate{UpstreamRequestID: "unknown", Status: rail.StatusVerified}))

	update := rail.StatusUpdate{UpstreamRequestID: req.UpstreamRequestID, Status: rail.StatusRejected, Reason: "amount mismatch"}
	suite.NoError(suite.h.Svc.ProcessRailStatusUpdate(suite.ctx, update))
	suite.NoError(suite.h.Svc.ProcessRailStatusUpdate(suite.ctx, update))

	stored := suite.stored(req.ID)
	suite.Equal(common.StatusRejected, stored.Status)
	suite.Equal("amount mismatch", stored.RejectionReason)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestStaleWriteIsNotApplied() {
	req := suite.verifyingRequest()
	stored := suite.stored(req.ID)
	stored.Status = common.StatusRejected
	suite.h.Store.Put(*stored)

	err := suite.h.Store.UpdateStatus(suite.ctx, &models.PaymentRequest{ID: req.ID, Status: common.StatusVerified}, common.StatusVerifying)
	suite.ErrorIs(err, service.ErrStaleStatus)
	suite.Equal(common.StatusRejected, suite.stored(req.ID).Status)
}
