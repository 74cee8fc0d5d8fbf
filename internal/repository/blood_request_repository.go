package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodlink/internal/domain"
)

type BloodRequestRepository interface {
	Create(ctx context.Context, req *domain.BloodRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error)
	// UpdateStatusIf applies patch only while the stored status equals expected.
	// It reports whether the condition matched.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.RequestStatus, patch domain.RequestPatch) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error)
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
}

type bloodRequestRepository struct {
	db *sqlx.DB
}

func NewBloodRequestRepository(db *sqlx.DB) BloodRequestRepository {
	return &bloodRequestRepository{db: db}
}

func (r *bloodRequestRepository) Create(ctx context.Context, req *domain.BloodRequest) error {
	query := `
		INSERT INTO blood_requests (request_id, kind, requester_email, recipient_email, blood_type, donation_type, units, urgency, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		req.ID, req.Kind, req.RequesterEmail, req.RecipientEmail, req.BloodType,
		req.DonationType, req.Units, req.Urgency, req.Status, req.Message,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *bloodRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	var req domain.BloodRequest
	query := `SELECT * FROM blood_requests WHERE request_id = $1`

	err := r.db.GetContext(ctx, &req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bloodRequestRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.RequestStatus, patch domain.RequestPatch) (bool, error) {
	query := `
		UPDATE blood_requests
		SET status = $3, responder_email = COALESCE($4, responder_email), updated_at = NOW()
		WHERE request_id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, expected, patch.Status, patch.ResponderEmail)
	if err != nil {
		return false, err
	}
	return matched(res)
}

func (r *bloodRequestRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blood_requests WHERE request_id = $1`, id)
	if err != nil {
		return false, err
	}
	return matched(res)
}

func (r *bloodRequestRepository) List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) ([]domain.BloodRequest, int64, error) {
	params.Validate()

	var (
		conds []string
		args  []any
	)
	if filter.RequesterEmail != "" {
		args = append(args, filter.RequesterEmail)
		conds = append(conds, fmt.Sprintf("requester_email = $%d", len(args)))
	}
	if filter.ResponderEmail != "" {
		args = append(args, filter.ResponderEmail)
		conds = append(conds, fmt.Sprintf("responder_email = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM blood_requests`+where, args...); err != nil {
		return nil, 0, err
	}

	var requests []domain.BloodRequest
	query := fmt.Sprintf(`SELECT * FROM blood_requests%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	err := r.db.SelectContext(ctx, &requests, query, append(args, params.PageSize, params.Offset())...)
	return requests, total, err
}

func (r *bloodRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	var rows []struct {
		Status domain.RequestStatus `db:"status"`
		Count  int64                `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM blood_requests GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[domain.RequestStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
