package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

type bloodUnitRepository struct {
	s *Store
}

func (r *bloodUnitRepository) Create(_ context.Context, unit *domain.BloodUnit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	unit.CreatedAt, unit.UpdatedAt = now, now
	u := *unit
	r.s.units[unit.ID] = &u
	return nil
}

func (r *bloodUnitRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.BloodUnit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.units[id]
	if !ok {
		return nil, nil
	}
	unit := *u
	return &unit, nil
}

func (r *bloodUnitRepository) Update(_ context.Context, unit *domain.BloodUnit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.units[unit.ID]
	if !ok {
		return domain.NotFound("blood unit not found")
	}
	stored.BloodType = unit.BloodType
	stored.DonationType = unit.DonationType
	stored.Units = unit.Units
	stored.CollectionDate = unit.CollectionDate
	stored.ExpirationDate = unit.ExpirationDate
	stored.UpdatedAt = r.s.now()
	return nil
}

func (r *bloodUnitRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.units[id]; !ok {
		return domain.NotFound("blood unit not found")
	}
	delete(r.s.units, id)
	return nil
}

func (r *bloodUnitRepository) ListByLocation(_ context.Context, location string) ([]domain.BloodUnit, error) {
	return r.list(func(u *domain.BloodUnit) bool { return u.Location == location }), nil
}

func (r *bloodUnitRepository) ListExpiringBefore(_ context.Context, location string, before time.Time) ([]domain.BloodUnit, error) {
	return r.list(func(u *domain.BloodUnit) bool {
		return u.Location == location && !u.ExpirationDate.After(before)
	}), nil
}

func (r *bloodUnitRepository) list(keep func(*domain.BloodUnit) bool) []domain.BloodUnit {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var units []domain.BloodUnit
	for _, u := range r.s.units {
		if keep(u) {
			units = append(units, *u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ExpirationDate.Before(units[j].ExpirationDate) })
	return units
}

type transferRepository struct {
	s *Store
}

func (r *transferRepository) Create(_ context.Context, t *domain.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t.CreatedAt = r.s.now()
	stored := *t
	r.s.transfers[t.ID] = &stored
	return nil
}

func (r *transferRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transfers[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (r *transferRepository) Update(_ context.Context, t *domain.Transfer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.transfers[t.ID]
	if !ok {
		return domain.NotFound("transfer not found")
	}
	stored.Destination = t.Destination
	stored.BloodType = t.BloodType
	stored.DonationType = t.DonationType
	stored.Units = t.Units
	stored.Date = t.Date
	return nil
}

func (r *transferRepository) ListByFacility(_ context.Context, email string, params domain.PaginationParams) ([]domain.Transfer, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var transfers []domain.Transfer
	for _, t := range r.s.transfers {
		if t.Source == email || t.Destination == email {
			transfers = append(transfers, *t)
		}
	}
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].Date.After(transfers[j].Date) })
	data, total := page(transfers, params)
	return data, total, nil
}

type sessionRepository struct {
	s *Store
}

func (r *sessionRepository) Create(_ context.Context, session *repository.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session.CreatedAt = r.s.now()
	stored := *session
	r.s.sessions[session.ID] = &stored
	return nil
}

func (r *sessionRepository) GetActiveByTokenHash(_ context.Context, tokenHash string) (*repository.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	for _, s := range r.s.sessions {
		if s.TokenHash == tokenHash && s.RevokedAt == nil && s.ExpiresAt.After(now) {
			out := *s
			return &out, nil
		}
	}
	return nil, nil
}

func (r *sessionRepository) Revoke(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if s, ok := r.s.sessions[id]; ok && s.RevokedAt == nil {
		now := r.s.now()
		s.RevokedAt = &now
	}
	return nil
}

func (r *sessionRepository) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, s := range r.s.sessions {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *sessionRepository) PurgeStale(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var removed int64
	for id, s := range r.s.sessions {
		if s.RevokedAt != nil || s.ExpiresAt.Before(now) {
			delete(r.s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
