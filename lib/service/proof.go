package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/rail"
)

type SubmitProofParams struct {
	TransactionReference string
	Method               common.PaymentMethod
	Attachment           *Attachment
}

// SubmitPaymentProof attaches the payer's proof and starts verification.
// On ErrRequestExpired the returned request carries the Expired status.
func (svc *PaymentService) SubmitPaymentProof(ctx context.Context, id string, params SubmitProofParams) (*models.PaymentRequest, error) {
	unlock := svc.locks.Lock(id)
	req, err := svc.Store.FindPaymentRequest(ctx, id)
	if err != nil {
		unlock()
		return nil, err
	}
	if req.Status.IsFinalized() {
		unlock()
		return req, ErrRequestAlreadyFinalized
	}

	// expiry is re-evaluated here, a sweep may not have run yet
	now := svc.now()
	if req.Status == common.StatusExpired {
		unlock()
		return req, ErrRequestExpired
	}
	if !req.HasProof() && IsExpired(req, now) {
		expired, err := svc.expireLocked(ctx, req, now)
		unlock()
		if err != nil {
			return nil, err
		}
		if expired {
			svc.Logger.Infof("Proof submitted after expiry: id:%s expires_at:%s", req.ID, req.ExpiresAt)
			svc.announce(ctx, req)
		}
		return req, ErrRequestExpired
	}

	if req.HasProof() {
		unlock()
		return req, ErrProofAlreadySubmitted
	}
	reference := strings.TrimSpace(params.TransactionReference)
	if reference == "" {
		unlock()
		return nil, ErrMissingTransactionReference
	}
	if params.Method != "" && !params.Method.Valid() {
		unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, params.Method)
	}
	if req.RequireEvidence && !params.Attachment.present() {
		unlock()
		return nil, ErrEvidenceRequired
	}
	if a := params.Attachment; a != nil && a.Body != nil && a.Size > svc.Config.MaxEvidenceSize {
		unlock()
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", ErrEvidenceTooLarge, a.Size, svc.Config.MaxEvidenceSize)
	}

	proof := &models.PaymentProof{
		PaymentRequestID:     req.ID,
		TransactionReference: reference,
		Method:               params.Method,
		SubmittedAt:          now,
	}
	if params.Attachment.present() {
		proof.AttachmentRef, err = svc.storeAttachment(ctx, req.ID, params.Attachment)
		if err != nil {
			unlock()
			return nil, err
		}
	}

	from := req.Status
	if err := svc.transition(req, common.StatusVerifying, now); err != nil {
		unlock()
		return nil, err
	}
	req.Proof = proof
	if err := svc.Store.AttachProof(ctx, req, from); err != nil {
		unlock()
		svc.Logger.Errorf("Could not store proof for payment request id:%s: %v", id, err)
		return nil, err
	}
	unlock()
	svc.Logger.Infof("Proof submitted: id:%s reference:%s method:%s", req.ID, reference, params.Method)

	if svc.Config.SyncFirstCheck {
		if resolved := svc.firstCheck(ctx, req); resolved != nil {
			return resolved, nil
		}
	}
	return req, nil
}

func (svc *PaymentService) storeAttachment(ctx context.Context, id string, attachment *Attachment) (string, error) {
	if attachment.Body == nil {
		return attachment.Reference, nil
	}
	if svc.Evidence == nil {
		return "", ErrEvidenceUnavailable
	}
	ref, err := svc.Evidence.StoreEvidence(ctx, id, attachment)
	if err != nil {
		svc.Logger.Errorf("Could not store evidence for payment request id:%s: %v", id, err)
		return "", err
	}
	return ref, nil
}

// firstCheck asks the rail once, without retries. A terminal answer finalizes
// the request right away, anything else leaves it to the poller.
func (svc *PaymentService) firstCheck(ctx context.Context, req *models.PaymentRequest) *models.PaymentRequest {
	checkCtx, cancel := context.WithTimeout(ctx, svc.Config.FirstCheckTimeout)
	defer cancel()
	result, err := svc.Rail.CheckStatus(checkCtx, req.UpstreamRequestID)
	if err != nil {
		svc.Metrics.ObserveStatusCheckError()
		svc.Logger.Infof("First status check failed, deferring to polling: id:%s error:%v", req.ID, err)
		return nil
	}
	if result.Status == rail.StatusPending {
		return nil
	}
	resolved, err := svc.Finalize(ctx, req.ID, result)
	if err != nil {
		if errors.Is(err, ErrRequestAlreadyFinalized) {
			return resolved
		}
		svc.Logger.Errorf("Could not finalize after first check: id:%s error:%v", req.ID, err)
		return nil
	}
	return resolved
}
