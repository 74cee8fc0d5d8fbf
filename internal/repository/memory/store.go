// Package memory keeps every collection in process memory behind one lock.
// Conditional updates are evaluated under the write lock, so they carry the
// same compare-and-swap guarantee as the Postgres statements.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

type Store struct {
	mu  sync.RWMutex
	seq uint64
	now func() time.Time

	users         map[string]*userRow
	units         map[uuid.UUID]*domain.BloodUnit
	requests      map[uuid.UUID]*requestRow
	notifications map[uuid.UUID]*notificationRow
	offers        map[uuid.UUID]*offerRow
	transfers     map[uuid.UUID]*domain.Transfer
	sessions      map[uuid.UUID]*repository.Session
}

type userRow struct {
	domain.User
	seq uint64
}

type requestRow struct {
	domain.BloodRequest
	seq uint64
}

type notificationRow struct {
	domain.Notification
	seq uint64
}

type offerRow struct {
	domain.BloodOffer
	seq uint64
}

func NewStore() *Store {
	return &Store{
		now:           time.Now,
		users:         make(map[string]*userRow),
		units:         make(map[uuid.UUID]*domain.BloodUnit),
		requests:      make(map[uuid.UUID]*requestRow),
		notifications: make(map[uuid.UUID]*notificationRow),
		offers:        make(map[uuid.UUID]*offerRow),
		transfers:     make(map[uuid.UUID]*domain.Transfer),
		sessions:      make(map[uuid.UUID]*repository.Session),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Repositories {
	users := &userRepository{s: s}
	return &repository.Repositories{
		User:         users,
		Projection:   users,
		BloodUnit:    &bloodUnitRepository{s: s},
		BloodRequest: &bloodRequestRepository{s: s},
		Notification: &notificationRepository{s: s},
		BloodOffer:   &bloodOfferRepository{s: s},
		Transfer:     &transferRepository{s: s},
		Session:      &sessionRepository{s: s},
	}
}

// next must be called with the write lock held.
func (s *Store) next() uint64 {
	s.seq++
	return s.seq
}

// page slices items for params and returns the total count.
func page[T any](items []T, params domain.PaginationParams) ([]T, int64) {
	params.Validate()
	total := int64(len(items))
	start := params.Offset()
	if start >= len(items) {
		return []T{}, total
	}
	end := start + params.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}

// newestFirst orders by creation time, breaking ties by insertion order.
func newestFirst[T any](items []T, created func(T) time.Time, seq func(T) uint64) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return seq(items[i]) > seq(items[j])
	})
}
