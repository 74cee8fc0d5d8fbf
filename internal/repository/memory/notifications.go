package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
)

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Create(_ context.Context, notif *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notifications[notif.ID]; ok {
		return domain.Conflict("notification %s already exists", notif.ID)
	}
	notif.CreatedAt = r.s.now()
	r.s.notifications[notif.ID] = &notificationRow{Notification: *notif, seq: r.s.next()}
	return nil
}

func (r *notificationRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.notifications[id]
	if !ok {
		return nil, nil
	}
	n := row.Notification
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(_ context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*notificationRow
	for _, row := range r.s.notifications {
		if row.RecipientEmail != email || (unreadOnly && row.IsRead) {
			continue
		}
		rows = append(rows, row)
	}
	newestFirst(rows,
		func(r *notificationRow) time.Time { return r.CreatedAt },
		func(r *notificationRow) uint64 { return r.seq })

	list := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.Notification)
	}
	data, total := page(list, params)
	return data, total, nil
}

func (r *notificationRepository) MarkAsRead(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if row, ok := r.s.notifications[id]; ok && !row.IsRead {
		now := r.s.now()
		row.IsRead = true
		row.ReadAt = &now
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(_ context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, row := range r.s.notifications {
		if row.RecipientEmail == email && !row.IsRead {
			row.IsRead = true
			row.ReadAt = &now
		}
	}
	return nil
}

func (r *notificationRepository) CountUnread(_ context.Context, email string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var count int64
	for _, row := range r.s.notifications {
		if row.RecipientEmail == email && !row.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notifications[id]; !ok {
		return false, nil
	}
	delete(r.s.notifications, id)
	return true, nil
}

func (r *notificationRepository) DeleteByRequest(_ context.Context, requestID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	return r.deleteWhere(types, func(n *domain.Notification) bool {
		return n.RequestID != nil && *n.RequestID == requestID
	}), nil
}

func (r *notificationRepository) DeleteByOffer(_ context.Context, offerID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	return r.deleteWhere(types, func(n *domain.Notification) bool {
		return n.OfferID != nil && *n.OfferID == offerID
	}), nil
}

func (r *notificationRepository) DeleteForRecipient(_ context.Context, requestID uuid.UUID, recipient string, types ...domain.NotificationType) (int64, error) {
	if len(types) == 0 {
		return 0, nil
	}
	return r.deleteWhere(types, func(n *domain.Notification) bool {
		return n.RecipientEmail == recipient && n.RequestID != nil && *n.RequestID == requestID
	}), nil
}

func (r *notificationRepository) deleteWhere(types []domain.NotificationType, linked func(*domain.Notification) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for id, row := range r.s.notifications {
		if !linked(&row.Notification) || !typeIn(row.Type, types) {
			continue
		}
		delete(r.s.notifications, id)
		removed++
	}
	return removed
}

func typeIn(t domain.NotificationType, types []domain.NotificationType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
