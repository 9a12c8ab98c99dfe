package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if db.Dialect().Name().String() != "pg" {
			fmt.Printf("\033[1;31m%s\033[0m", "You are not using PostgreSQL. DB level checks can not be enabled!\n")
			return nil
		}
		sql := `
			-- only known statuses
				alter table payment_requests
				ADD CONSTRAINT check_payment_request_status
				CHECK (status IN ('created', 'awaiting_proof', 'verifying', 'verified', 'rejected', 'expired'));

			-- amounts are always positive
				alter table payment_requests
				ADD CONSTRAINT check_payment_request_amount
				CHECK (amount > 0);

			-- a proof is inserted in the same transaction that moves the request to verifying
				CREATE OR REPLACE FUNCTION check_proof_status()
					RETURNS TRIGGER AS $$
				DECLARE
					current_status VARCHAR;
				BEGIN
					SELECT INTO current_status status
					FROM payment_requests
					WHERE id = NEW.payment_request_id;

					IF current_status IS DISTINCT FROM 'verifying'
					THEN
						RAISE EXCEPTION 'proof not accepted [payment_request_id:%] status [%]',
						NEW.payment_request_id,
						current_status;
					END IF;
					RETURN NEW;
				END;
				$$ LANGUAGE plpgsql;
				CREATE TRIGGER check_proof_status
					BEFORE INSERT ON payment_proofs
					FOR EACH ROW EXECUTE PROCEDURE check_proof_status();
		`
		if _, err := db.Exec(sql); err != nil {
			return err
		}
		return nil
	}, nil)
}
