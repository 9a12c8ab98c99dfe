package common

// PaymentStatus is the canonical state of a payment request.
// Values are persisted as-is, do not rename them.
type PaymentStatus string

const (
	StatusCreated       PaymentStatus = "created"
	StatusAwaitingProof PaymentStatus = "awaiting_proof"
	StatusVerifying     PaymentStatus = "verifying"
	StatusVerified      PaymentStatus = "verified"
	StatusRejected      PaymentStatus = "rejected"
	StatusExpired       PaymentStatus = "expired"
)

// IsTerminal reports whether no further transition can leave s.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusVerified, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsFinalized reports whether s is a verification result.
func (s PaymentStatus) IsFinalized() bool {
	return s == StatusVerified || s == StatusRejected
}

type PaymentMethod string

const (
	MethodUPIIntent    PaymentMethod = "upi_intent"
	MethodUPIQR        PaymentMethod = "upi_qr"
	MethodUPICollect   PaymentMethod = "upi_collect"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodUPIIntent, MethodUPIQR, MethodUPICollect, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// Outcome is what a caller is told about a payment request.
type Outcome string

const (
	OutcomeStillWaiting      Outcome = "still_waiting"
	OutcomeSucceeded         Outcome = "succeeded"
	OutcomeRejected          Outcome = "rejected"
	OutcomeNeedsManualReview Outcome = "needs_manual_review"
	OutcomeExpired           Outcome = "expired"
)

const (
	DefaultCurrency = "INR"

	// routing key prefix for terminal payment events
	PaymentEventTopic = "payment"
)
