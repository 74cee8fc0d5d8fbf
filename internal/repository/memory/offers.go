package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
)

type bloodOfferRepository struct {
	s *Store
}

func (r *bloodOfferRepository) Create(_ context.Context, offer *domain.BloodOffer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.offers[offer.ID]; ok {
		return domain.Conflict("offer %s already exists", offer.ID)
	}
	offer.CreatedAt = r.s.now()
	r.s.offers[offer.ID] = &offerRow{BloodOffer: *offer, seq: r.s.next()}
	return nil
}

func (r *bloodOfferRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.BloodOffer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.offers[id]
	if !ok {
		return nil, nil
	}
	offer := row.BloodOffer
	return &offer, nil
}

func (r *bloodOfferRepository) ClaimIf(_ context.Context, id uuid.UUID, claim domain.OfferClaim) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.offers[id]
	if !ok || row.Status != domain.OfferAvailable {
		return false, nil
	}
	email, name, now := claim.Email, claim.Name, r.s.now()
	row.Status = domain.OfferClaimed
	row.ClaimedByEmail = &email
	row.ClaimedByName = &name
	row.ClaimedAt = &now
	return true, nil
}

func (r *bloodOfferRepository) DeleteIfAvailable(_ context.Context, id uuid.UUID, creatorEmail string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.offers[id]
	if !ok || row.CreatorEmail != creatorEmail || row.Status != domain.OfferAvailable {
		return false, nil
	}
	delete(r.s.offers, id)
	return true, nil
}

func (r *bloodOfferRepository) List(_ context.Context, status *domain.OfferStatus, params domain.PaginationParams) ([]domain.BloodOffer, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*offerRow
	for _, row := range r.s.offers {
		if status != nil && row.Status != *status {
			continue
		}
		rows = append(rows, row)
	}
	newestFirst(rows,
		func(r *offerRow) time.Time { return r.CreatedAt },
		func(r *offerRow) uint64 { return r.seq })

	offers := make([]domain.BloodOffer, 0, len(rows))
	for _, row := range rows {
		offers = append(offers, row.BloodOffer)
	}
	data, total := page(offers, params)
	return data, total, nil
}

func (r *bloodOfferRepository) CountByStatus(_ context.Context) (map[domain.OfferStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.OfferStatus]int64)
	for _, row := range r.s.offers {
		counts[row.Status]++
	}
	return counts, nil
}
