package service_test

import (
	"context"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/lib/service/servicetest"
)

func (suite *PaymentServiceTestSuite) TestExpireOverdue() {
	overdue := suite.createRequest(10, "")
	suite.h.Clock.Advance(200 * time.Second)
	fresh := suite.createRequest(20, "")
	verifying := suite.verifyingRequest()
	suite.h.Clock.Advance(150 * time.Second)

	expired, err := suite.h.Svc.ExpireOverdue(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(1, expired)
	suite.Equal(common.StatusExpired, suite.stored(overdue.ID).Status)
	suite.Equal(common.StatusAwaitingProof, suite.stored(fresh.ID).Status)
	suite.Equal(common.StatusVerifying, suite.stored(verifying.ID).Status)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestStartPendingVerificationRoutine() {
	first := suite.verifyingRequest()
	second := suite.verifyingRequest()
	suite.h.Rail.Fallback = servicetest.Verified()

	suite.Require().NoError(suite.h.Svc.StartPendingVerificationRoutine(suite.ctx))

	suite.Eventually(func() bool {
		return suite.stored(first.ID).Status == common.StatusVerified &&
			suite.stored(second.ID).Status == common.StatusVerified
	}, 2*time.Second, 10*time.Millisecond)
}

func (suite *PaymentServiceTestSuite) TestReconcileVerifying() {
	verified := suite.verifyingRequest()
	suite.h.Clock.Advance(time.Second)
	pending := suite.verifyingRequest()
	suite.h.Clock.Advance(2 * time.Hour)
	recent := suite.verifyingRequest()
	suite.h.Rail.Script(servicetest.Verified(), servicetest.Pending())

	report, err := suite.h.Svc.ReconcileVerifying(suite.ctx, time.Hour)
	suite.Require().NoError(err)
	suite.Equal(2, report.Checked)
	suite.Equal(1, report.Verified)
	suite.Equal(1, report.Pending)
	suite.Equal(common.StatusVerified, suite.stored(verified.ID).Status)
	suite.Equal(common.StatusVerifying, suite.stored(pending.ID).Status)
	suite.Equal(common.StatusVerifying, suite.stored(recent.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestExpirySweepRoutineStops() {
	suite.h.Svc.Config.ExpirySweepInterval = 5 * time.Millisecond
	ctx, cancel := context.WithTimeout(suite.ctx, 30*time.Millisecond)
	defer cancel()

	err := suite.h.Svc.StartExpirySweepRoutine(ctx)
	suite.ErrorIs(err, context.Canceled)
}
