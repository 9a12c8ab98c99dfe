package service

import "errors"

var (
	ErrInvalidAmount               = errors.New("amount outside of the allowed range")
	ErrRequestCreationFailed       = errors.New("payment request could not be created")
	ErrNotFound                    = errors.New("payment request not found")
	ErrRequestExpired              = errors.New("payment request expired")
	ErrProofAlreadySubmitted       = errors.New("proof already submitted")
	ErrMissingTransactionReference = errors.New("transaction reference is required")
	ErrEvidenceRequired            = errors.New("evidence attachment is required")
	ErrIllegalTransition           = errors.New("illegal status transition")
	ErrRequestAlreadyFinalized     = errors.New("payment request already finalized")
	ErrVerificationRejected        = errors.New("payment verification rejected")
	ErrVerificationTimedOut        = errors.New("payment verification timed out")

	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrIdempotencyConflict  = errors.New("a request with this idempotency key is still being created")
	ErrEvidenceUnavailable  = errors.New("evidence uploads are not configured")
	ErrEvidenceTooLarge     = errors.New("evidence attachment is too large")
	ErrPollCancelled        = errors.New("polling cancelled")

	// returned by a PaymentStore when a conditional status update lost a race
	ErrStaleStatus = errors.New("payment request status changed concurrently")
)
