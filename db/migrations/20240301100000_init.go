package migrations

import (
	"context"

	"github.com/edupay/upiverify/db/models"
	"github.com/uptrace/bun"
)

// This init reflects the latest model fields when run on a fresh db.
// Subsequent migrations that add/remove columns must use IfNotExists/IfExists.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().Model((*models.PaymentRequest)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.PaymentProof)(nil)).
			IfNotExists().
			ForeignKey(`(payment_request_id) REFERENCES payment_requests (id) ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewDropTable().Model((*models.PaymentProof)(nil)).IfExists().Exec(ctx); err != nil {
			return err
		}
		_, err := db.NewDropTable().Model((*models.PaymentRequest)(nil)).IfExists().Exec(ctx)
		return err
	})
}
