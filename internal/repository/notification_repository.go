package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bloodlink/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, email string) error
	CountUnread(ctx context.Context, email string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteByRequest removes notifications linked to a request, limited to types when given.
	DeleteByRequest(ctx context.Context, requestID uuid.UUID, types ...domain.NotificationType) (int64, error)
	DeleteByOffer(ctx context.Context, offerID uuid.UUID, types ...domain.NotificationType) (int64, error)
	DeleteForRecipient(ctx context.Context, requestID uuid.UUID, recipient string, types ...domain.NotificationType) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (notification_id, type, recipient_email, requester_email, requester_name, requester_mobile,
			request_id, offer_id, message, blood_type, units, urgency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.Type, notif.RecipientEmail, notif.RequesterEmail, notif.RequesterName, notif.RequesterMobile,
		notif.RequestID, notif.OfferID, notif.Message, notif.BloodType, notif.Units, notif.Urgency,
	).Scan(&notif.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `SELECT * FROM notifications WHERE notification_id = $1`

	err := r.db.GetContext(ctx, &notif, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	var total int64
	var notifications []domain.Notification

	if unreadOnly {
		countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_email = $1 AND is_read = false`
		if err := r.db.GetContext(ctx, &total, countQuery, email); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT * FROM notifications
			WHERE recipient_email = $1 AND is_read = false
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		err := r.db.SelectContext(ctx, &notifications, query, email, params.PageSize, params.Offset())
		return notifications, total, err
	}

	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_email = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, email); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM notifications
		WHERE recipient_email = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &notifications, query, email, params.PageSize, params.Offset())
	return notifications, total, err
}

// MarkAsRead only flips unread rows, so repeating it is a no-op.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE notification_id = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, email string) error {
	query := `UPDATE notifications SET is_read = true, read_at = NOW() WHERE recipient_email = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, email)
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, email string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_email = $1 AND is_read = false`
	err := r.db.GetContext(ctx, &count, query, email)
	return count, err
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE notification_id = $1`, id)
	if err != nil {
		return false, err
	}
	return matched(res)
}

func (r *notificationRepository) DeleteByRequest(ctx context.Context, requestID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	return r.deleteLinked(ctx, "request_id", requestID, types)
}

func (r *notificationRepository) DeleteByOffer(ctx context.Context, offerID uuid.UUID, types ...domain.NotificationType) (int64, error) {
	return r.deleteLinked(ctx, "offer_id", offerID, types)
}

func (r *notificationRepository) DeleteForRecipient(ctx context.Context, requestID uuid.UUID, recipient string, types ...domain.NotificationType) (int64, error) {
	query := `DELETE FROM notifications WHERE request_id = $1 AND recipient_email = $2 AND type = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, requestID, recipient, pq.Array(typeNames(types)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) deleteLinked(ctx context.Context, column string, id uuid.UUID, types []domain.NotificationType) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(types) == 0 {
		res, err = r.db.ExecContext(ctx, `DELETE FROM notifications WHERE `+column+` = $1`, id)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM notifications WHERE `+column+` = $1 AND type = ANY($2)`, id, pq.Array(typeNames(types)))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func typeNames(types []domain.NotificationType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
