package service_test

import (
	"bytes"
	"context"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/lib/service"
	"github.com/edupay/upiverify/lib/service/servicetest"
)

type recordingEvidence struct {
	stored []string
}

func (e *recordingEvidence) StoreEvidence(ctx context.Context, requestID string, attachment *service.Attachment) (string, error) {
	ref := "evidence/" + requestID + "/" + attachment.Filename
	e.stored = append(e.stored, ref)
	return ref, nil
}

func (suite *PaymentServiceTestSuite) TestSubmitProof() {
	req := suite.createRequest(500, "tuition")

	submitted, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{
		TransactionReference: "  TXN123 ",
		Method:               common.MethodUPIQR,
	})
	suite.Require().NoError(err)
	suite.Equal(common.StatusVerifying, submitted.Status)

	stored := suite.stored(req.ID)
	suite.Equal(common.StatusVerifying, stored.Status)
	suite.Require().NotNil(stored.Proof)
	suite.Equal("TXN123", stored.Proof.TransactionReference)
	suite.Equal(common.MethodUPIQR, stored.Proof.Method)
	suite.Equal(suite.h.Clock.Now(), stored.Proof.SubmittedAt)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofUnknownRequest() {
	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, "missing", service.SubmitProofParams{TransactionReference: "TXN123"})
	suite.ErrorIs(err, service.ErrNotFound)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofMissingReference() {
	req := suite.createRequest(500, "")

	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "   "})
	suite.ErrorIs(err, service.ErrMissingTransactionReference)
	suite.Equal(common.StatusAwaitingProof, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofInvalidMethod() {
	req := suite.createRequest(500, "")

	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN1", Method: "cash"})
	suite.ErrorIs(err, service.ErrInvalidPaymentMethod)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofAfterExpiry() {
	req, err := suite.h.Svc.CreatePaymentRequest(suite.ctx, service.CreatePaymentRequestParams{
		CallerID: "caller-1",
		Amount:   decimal10(),
		TTL:      60 * time.Second,
	})
	suite.Require().NoError(err)
	suite.h.Clock.Advance(61 * time.Second)

	expired, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN123"})
	suite.ErrorIs(err, service.ErrRequestExpired)
	suite.Require().NotNil(expired)
	suite.Equal(common.StatusExpired, expired.Status)
	suite.Equal(common.StatusExpired, suite.stored(req.ID).Status)
	suite.Nil(suite.stored(req.ID).Proof)
	suite.Len(suite.h.Notifier.Received(), 1)

	// a second attempt reports the same thing without notifying again
	_, err = suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN123"})
	suite.ErrorIs(err, service.ErrRequestExpired)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofTwice() {
	req := suite.verifyingRequest()

	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN999"})
	suite.ErrorIs(err, service.ErrProofAlreadySubmitted)
	suite.Equal("TXN123", suite.stored(req.ID).Proof.TransactionReference)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofTwiceAfterExpiry() {
	req := suite.verifyingRequest()
	suite.h.Clock.Advance(time.Hour)

	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN999"})
	suite.ErrorIs(err, service.ErrProofAlreadySubmitted)
	suite.Equal(common.StatusVerifying, suite.stored(req.ID).Status)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofFinalized() {
	req := suite.verifyingRequest()
	suite.h.Rail.Script(servicetest.Verified())
	_, err := suite.h.Svc.PollUntilResolved(suite.ctx, req.ID, 10*time.Millisecond, time.Second)
	suite.Require().NoError(err)

	_, err = suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN999"})
	suite.ErrorIs(err, service.ErrRequestAlreadyFinalized)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofEvidenceRequired() {
	req, err := suite.h.Svc.CreatePaymentRequest(suite.ctx, service.CreatePaymentRequestParams{
		CallerID:        "caller-1",
		Amount:          decimal10(),
		RequireEvidence: true,
	})
	suite.Require().NoError(err)

	_, err = suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN1"})
	suite.ErrorIs(err, service.ErrEvidenceRequired)

	_, err = suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{
		TransactionReference: "TXN1",
		Attachment:           &service.Attachment{Filename: "receipt.png", Body: bytes.NewBufferString("png")},
	})
	suite.ErrorIs(err, service.ErrEvidenceUnavailable)

	evidence := &recordingEvidence{}
	suite.h.Svc.Evidence = evidence
	submitted, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{
		TransactionReference: "TXN1",
		Attachment:           &service.Attachment{Filename: "receipt.png", Body: bytes.NewBufferString("png")},
	})
	suite.Require().NoError(err)
	suite.Equal("evidence/"+req.ID+"/receipt.png", submitted.Proof.AttachmentRef)
	suite.Len(evidence.stored, 1)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofEvidenceTooLarge() {
	evidence := &recordingEvidence{}
	suite.h.Svc.Evidence = evidence
	oversized := func() *service.Attachment {
		size := suite.h.Svc.Config.MaxEvidenceSize + 1
		return &service.Attachment{Filename: "receipt.png", Size: size, Body: bytes.NewReader(make([]byte, size))}
	}

	req := suite.createRequest(10, "")
	_, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN1", Attachment: oversized()})
	suite.ErrorIs(err, service.ErrEvidenceTooLarge)
	suite.Equal(common.StatusAwaitingProof, suite.stored(req.ID).Status)
	suite.Empty(evidence.stored)

	// request state is checked before the attachment
	suite.h.Clock.Advance(301 * time.Second)
	_, err = suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN1", Attachment: oversized()})
	suite.ErrorIs(err, service.ErrRequestExpired)
	suite.Empty(evidence.stored)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofAttachmentReference() {
	req, err := suite.h.Svc.CreatePaymentRequest(suite.ctx, service.CreatePaymentRequestParams{
		CallerID:        "caller-1",
		Amount:          decimal10(),
		RequireEvidence: true,
	})
	suite.Require().NoError(err)

	submitted, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{
		TransactionReference: "TXN1",
		Attachment:           &service.Attachment{Reference: "s3://bucket/receipt.png"},
	})
	suite.Require().NoError(err)
	suite.Equal("s3://bucket/receipt.png", submitted.Proof.AttachmentRef)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofSyncFirstCheck() {
	suite.h.Svc.Config.SyncFirstCheck = true
	req := suite.createRequest(500, "")
	suite.h.Rail.Script(servicetest.Verified())

	resolved, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN123"})
	suite.Require().NoError(err)
	suite.Equal(common.StatusVerified, resolved.Status)
	suite.Len(suite.h.Notifier.Received(), 1)
}

func (suite *PaymentServiceTestSuite) TestSubmitProofSyncFirstCheckFailureDefers() {
	suite.h.Svc.Config.SyncFirstCheck = true
	req := suite.createRequest(500, "")
	suite.h.Rail.Script(servicetest.Failing(servicetest.ErrRailDown))

	submitted, err := suite.h.Svc.SubmitPaymentProof(suite.ctx, req.ID, service.SubmitProofParams{TransactionReference: "TXN123"})
	suite.Require().NoError(err)
	suite.Equal(common.StatusVerifying, submitted.Status)
	suite.Equal(1, suite.h.Rail.Checks())
}
