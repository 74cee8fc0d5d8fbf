package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bloodlink/internal/domain"
)

type userRepository struct {
	s *Store
}

func cloneUser(u domain.User) *domain.User {
	u.AvailableBloodTypes = append(pq.StringArray(nil), u.AvailableBloodTypes...)
	return &u
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.Email]; ok {
		return domain.Conflict("email %s already registered", user.Email)
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.Email] = &userRow{User: *cloneUser(*user), seq: r.s.next()}
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.users {
		if row.ID == id {
			return cloneUser(row.User), nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.users[email]
	if !ok {
		return nil, nil
	}
	return cloneUser(row.User), nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, row := range r.s.users {
		if row.ID != user.ID {
			continue
		}
		row.PasswordHash = user.PasswordHash
		row.FullName = user.FullName
		row.Mobile = user.Mobile
		row.Region = user.Region
		row.BloodType = user.BloodType
		row.UpdatedAt = r.s.now()
		return nil
	}
	return domain.NotFound("user not found")
}

func (r *userRepository) SetStatus(_ context.Context, email string, status domain.UserStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[email]
	if !ok {
		return domain.NotFound("user not found")
	}
	row.Status = status
	row.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) Delete(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[email]; !ok {
		return domain.NotFound("user not found")
	}
	delete(r.s.users, email)
	return nil
}

func (r *userRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.users[email]
	return ok, nil
}

func (r *userRepository) ListActiveByRoles(_ context.Context, roles []domain.UserRole) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []domain.User
	for _, row := range r.s.sortedUsers() {
		if !row.IsActive() {
			continue
		}
		if len(roles) > 0 && !row.HasRole(roles...) {
			continue
		}
		users = append(users, *cloneUser(row.User))
	}
	return users, nil
}

func (r *userRepository) ListFacilitiesWithBloodType(_ context.Context, bloodType string) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []domain.User
	for _, row := range r.s.users {
		if !row.IsActive() || !row.IsFacility() {
			continue
		}
		for _, t := range row.AvailableBloodTypes {
			if t == bloodType {
				users = append(users, *cloneUser(row.User))
				break
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

func (r *userRepository) List(_ context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := r.s.sortedUsers()
	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, *cloneUser(row.User))
	}
	data, total := page(users, params)
	return data, total, nil
}

func (r *userRepository) CountAll(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

// RecomputeInventoryProjection reads the units and writes the projection under one write lock.
func (r *userRepository) RecomputeInventoryProjection(_ context.Context, email string) (domain.InventorySummary, []string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[email]
	if !ok {
		return domain.InventorySummary{}, nil, domain.NotFound("facility not found")
	}

	var units []domain.BloodUnit
	for _, u := range r.s.units {
		if u.Location == email {
			units = append(units, *u)
		}
	}
	summary, types := domain.SummarizeUnits(units)

	row.InventorySummary = summary
	row.AvailableBloodTypes = append(pq.StringArray(nil), types...)
	row.UpdatedAt = r.s.now()
	return summary, types, nil
}

// sortedUsers must be called with the lock held.
func (s *Store) sortedUsers() []*userRow {
	rows := make([]*userRow, 0, len(s.users))
	for _, row := range s.users {
		rows = append(rows, row)
	}
	newestFirst(rows,
		func(r *userRow) time.Time { return r.CreatedAt },
		func(r *userRow) uint64 { return r.seq })
	return rows
}
