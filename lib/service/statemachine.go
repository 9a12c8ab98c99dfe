package service

import (
	"fmt"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/uptrace/bun"
)

// legal transitions; Verifying -> Expired is deliberately absent
var transitions = map[common.PaymentStatus][]common.PaymentStatus{
	common.StatusCreated:       {common.StatusAwaitingProof},
	common.StatusAwaitingProof: {common.StatusVerifying, common.StatusExpired},
	common.StatusVerifying:     {common.StatusVerified, common.StatusRejected},
}

// CheckTransition validates from -> to against the transition table.
func CheckTransition(from, to common.PaymentStatus) error {
	if from.IsFinalized() {
		return fmt.Errorf("%w: request is %s", ErrRequestAlreadyFinalized, from)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// transition is the only code path that writes PaymentRequest.Status.
// It mutates the in-memory record, persisting is up to the caller.
func (svc *PaymentService) transition(req *models.PaymentRequest, to common.PaymentStatus, at time.Time) error {
	from := req.Status
	if err := CheckTransition(from, to); err != nil {
		return err
	}
	req.Status = to
	if to.IsTerminal() {
		req.FinalizedAt = bun.NullTime{Time: at}
	}
	svc.Metrics.ObserveTransition(from, to)
	if svc.Logger != nil {
		svc.Logger.Infof("Payment request transition: id:%s %s -> %s", req.ID, from, to)
	}
	return nil
}
