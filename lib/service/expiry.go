package service

import (
	"time"

	"github.com/edupay/upiverify/db/models"
)

// IsExpired reports whether the proof submission window of req has lapsed at now.
// It must be evaluated at the moment of use, never cached.
func IsExpired(req *models.PaymentRequest, now time.Time) bool {
	ttl := req.ExpiresAt.Sub(req.CreatedAt)
	return now.Sub(req.CreatedAt) >= ttl
}
