package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
)

type bloodRequestRepository struct {
	s *Store
}

func (r *bloodRequestRepository) Create(_ context.Context, req *domain.BloodRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[req.ID]; ok {
		return domain.Conflict("request %s already exists", req.ID)
	}
	now := r.s.now()
	req.CreatedAt, req.UpdatedAt = now, now
	r.s.requests[req.ID] = &requestRow{BloodRequest: *req, seq: r.s.next()}
	return nil
}

func (r *bloodRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.requests[id]
	if !ok {
		return nil, nil
	}
	req := row.BloodRequest
	return &req, nil
}

func (r *bloodRequestRepository) UpdateStatusIf(_ context.Context, id uuid.UUID, expected domain.RequestStatus, patch domain.RequestPatch) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.requests[id]
	if !ok || row.Status != expected {
		return false, nil
	}
	row.Status = patch.Status
	if patch.ResponderEmail != nil {
		email := *patch.ResponderEmail
		row.ResponderEmail = &email
	}
	row.UpdatedAt = r.s.now()
	return true, nil
}

func (r *bloodRequestRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[id]; !ok {
		return false, nil
	}
	delete(r.s.requests, id)
	return true, nil
}

func (r *bloodRequestRepository) List(_ context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*requestRow
	for _, row := range r.s.requests {
		if filter.RequesterEmail != "" && row.RequesterEmail != filter.RequesterEmail {
			continue
		}
		if filter.ResponderEmail != "" && (row.ResponderEmail == nil || *row.ResponderEmail != filter.ResponderEmail) {
			continue
		}
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		rows = append(rows, row)
	}
	newestFirst(rows,
		func(r *requestRow) time.Time { return r.CreatedAt },
		func(r *requestRow) uint64 { return r.seq })

	requests := make([]domain.BloodRequest, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, row.BloodRequest)
	}
	data, total := page(requests, params)
	return data, total, nil
}

func (r *bloodRequestRepository) CountByStatus(_ context.Context) (map[domain.RequestStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.RequestStatus]int64)
	for _, row := range r.s.requests {
		counts[row.Status]++
	}
	return counts, nil
}
