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
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePaymentRequestParams struct {
	CallerID        string
	Amount          decimal.Decimal
	PayeeAddress    string
	PayeeName       string
	Note            string
	RequireEvidence bool
	// TTL overrides Config.RequestTTL when positive
	TTL            time.Duration
	IdempotencyKey string
}

// ValidateAmount accepts positive amounts in [MinAmount, MaxAmount] with at most two
// decimal places. Finer amounts are rejected, never rounded.
func (svc *PaymentService) ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.LessThan(svc.Config.MinAmount) || amount.GreaterThan(svc.Config.MaxAmount) {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidAmount, amount.String(), svc.Config.MinAmount.String(), svc.Config.MaxAmount.String())
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidAmount, amount.String())
	}
	return nil
}

// CreatePaymentRequest registers a new payment intent with the rail and persists it in AwaitingProof.
// It never retries: a retry could create a second upstream intent. Callers that retry should
// send an idempotency key.
func (svc *PaymentService) CreatePaymentRequest(ctx context.Context, params CreatePaymentRequestParams) (*models.PaymentRequest, error) {
	if err := svc.ValidateAmount(params.Amount); err != nil {
		return nil, err
	}
	if params.PayeeAddress == "" {
		params.PayeeAddress = svc.Config.PayeeAddress
		if params.PayeeName == "" {
			params.PayeeName = svc.Config.PayeeName
		}
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = svc.Config.RequestTTL
	}
	id := uuid.NewString()

	if params.IdempotencyKey != "" {
		existing, err := svc.claimIdempotencyKey(ctx, params.IdempotencyKey, params.CallerID, id)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	now := svc.now()
	intent := BuildIntent(id, params.Amount, params.PayeeAddress, params.PayeeName, params.Note)
	req := &models.PaymentRequest{
		ID:              id,
		CallerID:        params.CallerID,
		Amount:          params.Amount.Round(2),
		PayeeAddress:    params.PayeeAddress,
		PayeeName:       params.PayeeName,
		Note:            params.Note,
		QRPayload:       intent.QRPayload,
		DeepLink:        intent.DeepLink,
		IdempotencyKey:  params.IdempotencyKey,
		RequireEvidence: params.RequireEvidence,
		Status:          common.StatusCreated,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}

	upstream, err := svc.Rail.CreateUpstreamPayment(ctx, rail.PaymentIntentRequest{
		RequestID:    id,
		Amount:       req.Amount,
		PayeeAddress: req.PayeeAddress,
		PayeeName:    req.PayeeName,
		Note:         req.Note,
	})
	if err != nil {
		svc.releaseIdempotencyKey(params.IdempotencyKey)
		svc.Logger.Errorf("Upstream payment creation failed: id:%s amount:%s error:%v", id, req.Amount, err)
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%w: %v", ErrRequestCreationFailed, err)
	}
	req.UpstreamRequestID = upstream.UpstreamRequestID

	if err := svc.transition(req, common.StatusAwaitingProof, now); err != nil {
		return nil, err
	}
	if err := svc.Store.InsertPaymentRequest(ctx, req); err != nil {
		svc.releaseIdempotencyKey(params.IdempotencyKey)
		svc.Logger.Errorf("Could not persist payment request id:%s upstream_id:%s error:%v", id, req.UpstreamRequestID, err)
		sentry.CaptureException(err)
		return nil, fmt.Errorf("%w: %v", ErrRequestCreationFailed, err)
	}
	svc.Logger.Infof("Created payment request: id:%s caller:%s amount:%s expires_at:%s", req.ID, req.CallerID, req.Amount, req.ExpiresAt.Format(time.RFC3339))
	return req, nil
}

// claimIdempotencyKey returns the request already created under key, if any.
func (svc *PaymentService) claimIdempotencyKey(ctx context.Context, key, callerID, id string) (*models.PaymentRequest, error) {
	existing, err := svc.findByIdempotencyKey(ctx, key, callerID)
	if err != nil || existing != nil {
		return existing, err
	}
	if svc.IdempotencyKeys == nil {
		return nil, nil
	}
	owner, reserved, err := svc.IdempotencyKeys.Reserve(ctx, key, id, svc.Config.IdempotencyKeyTTL)
	if err != nil {
		// the unique column still protects against duplicates
		svc.Logger.Errorf("Could not reserve idempotency key %s: %v", key, err)
		return nil, nil
	}
	if reserved {
		return nil, nil
	}
	existing, err = svc.findByIdempotencyKey(ctx, key, callerID)
	if err != nil || existing != nil {
		return existing, err
	}
	svc.Logger.Infof("Idempotency key %s is held by in-flight request %s", key, owner)
	return nil, ErrIdempotencyConflict
}

func (svc *PaymentService) findByIdempotencyKey(ctx context.Context, key, callerID string) (*models.PaymentRequest, error) {
	existing, err := svc.Store.FindPaymentRequestByIdempotencyKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestCreationFailed, err)
	}
	if existing.CallerID != callerID {
		return nil, ErrIdempotencyConflict
	}
	return existing, nil
}

func (svc *PaymentService) releaseIdempotencyKey(key string) {
	if key == "" || svc.IdempotencyKeys == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.IdempotencyKeys.Release(ctx, key); err != nil {
		svc.Logger.Errorf("Could not release idempotency key %s: %v", key, err)
	}
}
