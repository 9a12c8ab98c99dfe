package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
)

// WebhookNotifier POSTs terminal payment requests as JSON to a fixed URL.
type WebhookNotifier struct {
	Url        string
	HttpClient *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		Url:        url,
		HttpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (wh *WebhookNotifier) Notify(ctx context.Context, req models.PaymentRequest) error {
	payload := new(bytes.Buffer)
	if err := EncodePaymentEvent(ctx, payload, req); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.Url, payload)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := wh.HttpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
	return nil
}

// PaymentEvent is the wire form of a terminal payment request.
type PaymentEvent struct {
	ID                   string     `json:"id"`
	CallerID             string     `json:"caller_id"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	PayeeAddress         string     `json:"payee_address"`
	Note                 string     `json:"note,omitempty"`
	Status               string     `json:"status"`
	TransactionReference string     `json:"transaction_reference,omitempty"`
	RejectionReason      string     `json:"rejection_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	ExpiresAt            time.Time  `json:"expires_at"`
	FinalizedAt          *time.Time `json:"finalized_at,omitempty"`
}

func NewPaymentEvent(req models.PaymentRequest) PaymentEvent {
	event := PaymentEvent{
		ID:              req.ID,
		CallerID:        req.CallerID,
		Amount:          req.Amount.StringFixed(2),
		Currency:        common.DefaultCurrency,
		PayeeAddress:    req.PayeeAddress,
		Note:            req.Note,
		Status:          string(req.Status),
		RejectionReason: req.RejectionReason,
		CreatedAt:       req.CreatedAt,
		ExpiresAt:       req.ExpiresAt,
	}
	if req.Proof != nil {
		event.TransactionReference = req.Proof.TransactionReference
	}
	if !req.FinalizedAt.IsZero() {
		finalizedAt := req.FinalizedAt.Time
		event.FinalizedAt = &finalizedAt
	}
	return event
}

// EncodePaymentEvent writes the JSON event for req to w.
func EncodePaymentEvent(ctx context.Context, w io.Writer, req models.PaymentRequest) error {
	return json.NewEncoder(w).Encode(NewPaymentEvent(req))
}
