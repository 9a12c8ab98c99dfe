// Package servicetest provides in-memory doubles for the payment service boundaries.
package servicetest

import (
	"context"
	"sort"
	"sync"

	"github.com/edupay/upiverify/common"
	"github.com/edupay/upiverify/db/models"
	"github.com/edupay/upiverify/lib/service"
)

// MemoryStore is a service.PaymentStore backed by a map. Records are copied
// on the way in and out so callers never share memory with the store.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]models.PaymentRequest
	updates  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]models.PaymentRequest)}
}

var _ service.PaymentStore = (*MemoryStore)(nil)

func clone(req models.PaymentRequest) *models.PaymentRequest {
	if req.Proof != nil {
		proof := *req.Proof
		req.Proof = &proof
	}
	return &req
}

func (s *MemoryStore) InsertPaymentRequest(ctx context.Context, req *models.PaymentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = *clone(*req)
	return nil
}

func (s *MemoryStore) FindPaymentRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return clone(req), nil
}

func (s *MemoryStore) FindPaymentRequestByIdempotencyKey(ctx context.Context, key string) (*models.PaymentRequest, error) {
	return s.findBy(func(req models.PaymentRequest) bool { return req.IdempotencyKey == key })
}

func (s *MemoryStore) FindPaymentRequestByUpstreamID(ctx context.Context, upstreamID string) (*models.PaymentRequest, error) {
	return s.findBy(func(req models.PaymentRequest) bool { return req.UpstreamRequestID == upstreamID })
}

func (s *MemoryStore) findBy(match func(models.PaymentRequest) bool) (*models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.requests {
		if match(req) {
			return clone(req), nil
		}
	}
	return nil, service.ErrNotFound
}

func (s *MemoryStore) FindPaymentRequests(ctx context.Context, filter service.PaymentRequestFilter) ([]models.PaymentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.PaymentRequest{}
	for _, req := range s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if !filter.ExpiresBefore.IsZero() && !req.ExpiresAt.Before(filter.ExpiresBefore) {
			continue
		}
		if !filter.UpdatedBefore.IsZero() {
			updatedAt := req.CreatedAt
			if !req.UpdatedAt.IsZero() {
				updatedAt = req.UpdatedAt.Time
			}
			if !updatedAt.Before(filter.UpdatedBefore) {
				continue
			}
		}
		result = append(result, *clone(req))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryStore) AttachProof(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error {
	return s.update(req, from)
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, req *models.PaymentRequest, from common.PaymentStatus) error {
	return s.update(req, from)
}

func (s *MemoryStore) update(req *models.PaymentRequest, from common.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[req.ID]
	if !ok {
		return service.ErrNotFound
	}
	if stored.Status != from {
		return service.ErrStaleStatus
	}
	s.requests[req.ID] = *clone(*req)
	s.updates++
	return nil
}

// Put overwrites a stored record, bypassing status checks.
func (s *MemoryStore) Put(req models.PaymentRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = *clone(req)
}

// Updates returns the number of successful conditional writes.
func (s *MemoryStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}
