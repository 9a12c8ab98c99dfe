package models

import (
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/uptrace/bun"
)

// PaymentProof : payer asserted evidence, at most one per payment request
type PaymentProof struct {
	bun.BaseModel `bun:"table:payment_proofs,alias:pp"`

	ID                   int64                `json:"-" bun:",pk,autoincrement"`
	PaymentRequestID     string               `json:"-" bun:",unique,notnull"`
	TransactionReference string               `json:"transaction_reference" bun:",notnull"`
	Method               common.PaymentMethod `json:"method,omitempty" bun:",nullzero"`
	AttachmentRef        string               `json:"attachment_ref,omitempty" bun:",nullzero"`
	SubmittedAt          time.Time            `json:"submitted_at" bun:",notnull"`
}
