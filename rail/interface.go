package rail

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// ErrUnknownPayment is returned when the rail has no record of an upstream id.
// Retrying will not help.
var ErrUnknownPayment = errors.New("rail: unknown upstream payment")

type PaymentIntentRequest struct {
	RequestID    string          `json:"request_id"`
	Amount       decimal.Decimal `json:"amount"`
	PayeeAddress string          `json:"payee_address"`
	PayeeName    string          `json:"payee_name,omitempty"`
	Note         string          `json:"note,omitempty"`
}

type UpstreamPayment struct {
	UpstreamRequestID string `json:"upstream_request_id"`
	QRPayload         string `json:"qr_payload,omitempty"`
	DeepLink          string `json:"deep_link,omitempty"`
}

type StatusResult struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StatusUpdate is an authoritative status pushed by the rail instead of polled.
type StatusUpdate struct {
	UpstreamRequestID string `json:"upstream_request_id"`
	Status            Status `json:"status"`
	Reason            string `json:"reason,omitempty"`
}

// Client is the external payment rail. It owns the authoritative payment status.
type Client interface {
	CreateUpstreamPayment(ctx context.Context, req PaymentIntentRequest) (*UpstreamPayment, error)
	CheckStatus(ctx context.Context, upstreamRequestID string) (*StatusResult, error)
}
