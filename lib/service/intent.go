package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/shopspring/decimal"
)

// Intent is the renderable proof-of-intent shown to the payer.
type Intent struct {
	QRPayload string
	DeepLink  string
}

// BuildIntent derives the UPI deep link and QR payload from the request fields.
// It is a pure function: the same input always gives the same artifacts.
func BuildIntent(id string, amount decimal.Decimal, payeeAddress, payeeName, note string) Intent {
	params := []struct{ key, value string }{
		{"pa", payeeAddress},
		{"pn", payeeName},
		{"am", amount.StringFixed(2)},
		{"cu", common.DefaultCurrency},
		{"tn", note},
		{"tr", id},
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+upiEscape(p.value))
	}
	link := "upi://pay?" + strings.Join(parts, "&")
	return Intent{
		QRPayload: link,
		DeepLink:  link,
	}
}

// UPI apps do not decode '+' as a space and expect the VPA '@' unescaped
var upiReplacer = strings.NewReplacer("+", "%20", "%40", "@")

func upiEscape(s string) string {
	return upiReplacer.Replace(url.QueryEscape(s))
}

// Instructions returns the human readable payment instructions for req.
func Instructions(req *models.PaymentRequest) string {
	payee := req.PayeeAddress
	if req.PayeeName != "" {
		payee = fmt.Sprintf("%s (%s)", req.PayeeName, req.PayeeAddress)
	}
	msg := fmt.Sprintf("Pay %s %s to %s by scanning the QR code with any UPI app or opening the payment link. "+
		"Then submit the UPI transaction reference (UTR) shown by your app before %s.",
		common.DefaultCurrency, req.Amount.StringFixed(2), payee, req.ExpiresAt.UTC().Format("15:04 MST"))
	if req.RequireEvidence {
		msg += " A screenshot or receipt of the payment is required."
	}
	return msg
}
