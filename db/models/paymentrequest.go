package models

import (
	"context"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PaymentRequest : Payment Request Model
// Amount, payee and the intent artifacts are written once at creation.
type PaymentRequest struct {
	bun.BaseModel `bun:"table:payment_requests,alias:pr"`

	ID                string               `json:"id" bun:",pk"`
	CallerID          string               `json:"-" bun:",notnull"`
	Amount            decimal.Decimal      `json:"amount" bun:"type:numeric(14,2),notnull"`
	PayeeAddress      string               `json:"payee_address" bun:",notnull"`
	PayeeName         string               `json:"payee_name"`
	Note              string               `json:"note"`
	QRPayload         string               `json:"qr_payload" bun:",notnull"`
	DeepLink          string               `json:"deep_link" bun:",notnull"`
	UpstreamRequestID string               `json:"-" bun:",unique,nullzero"`
	IdempotencyKey    string               `json:"-" bun:",unique,nullzero"`
	RequireEvidence   bool                 `json:"require_evidence" bun:",notnull"`
	Status            common.PaymentStatus `json:"status" bun:",notnull"`
	Proof             *PaymentProof        `json:"proof,omitempty" bun:"rel:has-one,join:id=payment_request_id"`
	CreatedAt         time.Time            `json:"created_at" bun:",notnull"`
	ExpiresAt         time.Time            `json:"expires_at" bun:",notnull"`
	UpdatedAt         bun.NullTime         `json:"updated_at"`
	FinalizedAt       bun.NullTime         `json:"finalized_at"`
	RejectionReason   string               `json:"rejection_reason,omitempty" bun:",nullzero"`
}

func (pr *PaymentRequest) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		pr.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// HasProof reports whether a proof is attached.
func (pr *PaymentRequest) HasProof() bool {
	return pr.Proof != nil
}

var _ bun.BeforeAppendModelHook = (*PaymentRequest)(nil)
