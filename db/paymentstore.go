package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/service"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// PaymentStore is the postgres backed service.PaymentStore.
type PaymentStore struct {
	DB *bun.DB
}

func NewPaymentStore(db *bun.DB) *PaymentStore {
	return &PaymentStore{DB: db}
}

var _ service.PaymentStore = (*PaymentStore)(nil)

var statusColumns = []string{"status", "finalized_at", "rejection_reason", "updated_at"}

func (s *PaymentStore) InsertPaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	_, err := s.DB.NewInsert().Model(req).Exec(ctx)
	return err
}

func (s *PaymentStore) FindPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	return s.findOne(ctx, "pr.id = ?", id)
}

func (s *PaymentStore) FindPaymentRequestByIdempotencyKey(ctx context.Context, key string) (*models.PaymentRequest, error) {
	return s.findOne(ctx, "pr.idempotency_key = ?", key)
}

func (s *PaymentStore) FindPaymentRequestByUpstreamID(ctx context.Context, upstreamID string) (*models.PaymentRequest, error) {
	return s.findOne(ctx, "pr.upstream_request_id = ?", upstreamID)
}

func (s *PaymentStore) findOne(ctx context.Context, where string, arg interface{}) (*models.PaymentRequest, error) {
	req := models.PaymentRequest{}
	err := s.DB.NewSelect().Model(&req).Relation("Proof").Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *PaymentStore) FindPaymentRequests(ctx context.Context, filter service.PaymentRequestFilter) ([]models.PaymentRequest, error) {
	requests := []models.PaymentRequest{}
	query := s.DB.NewSelect().Model(&requests).Relation("Proof").OrderExpr("pr.created_at ASC")
	if filter.Status != "" {
		query = query.Where("pr.status = ?", filter.Status)
	}
	if !filter.ExpiresBefore.IsZero() {
		query = query.Where("pr.expires_at < ?", filter.ExpiresBefore)
	}
	if !filter.UpdatedBefore.IsZero() {
		query = query.Where("COALESCE(pr.updated_at, pr.created_at) < ?", filter.UpdatedBefore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *PaymentStore) AttachProof(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error {
	return s.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := updateStatus(ctx, tx, req, from); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(req.Proof).Exec(ctx)
		if isUniqueViolation(err) {
			return service.ErrProofAlreadySubmitted
		}
		return err
	})
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error {
	return updateStatus(ctx, s.DB, req, from)
}

// updateStatus only writes when the stored status still equals from.
func updateStatus(ctx context.Context, db bun.IDB, req *models.PaymentRequest, from common.PaymentStatus) error {
	res, err := db.NewUpdate().
		Model(req).
		Column(statusColumns...).
		WherePK().
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return service.ErrStaleStatus
	}
	return nil
}
