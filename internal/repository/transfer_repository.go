package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodlink/internal/domain"
)

type TransferRepository interface {
	Create(ctx context.Context, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
	Update(ctx context.Context, transfer *domain.Transfer) error
	ListByFacility(ctx context.Context, email string, params domain.PaginationParams) ([]domain.Transfer, int64, error)
}

type transferRepository struct {
	db *sqlx.DB
}

func NewTransferRepository(db *sqlx.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(ctx context.Context, t *domain.Transfer) error {
	query := `
		INSERT INTO transfers (transfer_id, source, destination, blood_type, donation_type, units, transfer_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		t.ID, t.Source, t.Destination, t.BloodType, t.DonationType, t.Units, t.Date,
	).Scan(&t.CreatedAt)
}

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	var t domain.Transfer
	err := r.db.GetContext(ctx, &t, `SELECT * FROM transfers WHERE transfer_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transferRepository) Update(ctx context.Context, t *domain.Transfer) error {
	query := `
		UPDATE transfers
		SET destination = :destination, blood_type = :blood_type, donation_type = :donation_type,
			units = :units, transfer_date = :transfer_date
		WHERE transfer_id = :transfer_id`

	res, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return err
	}
	return expectOne(res, "transfer not found")
}

func (r *transferRepository) ListByFacility(ctx context.Context, email string, params domain.PaginationParams) ([]domain.Transfer, int64, error) {
	params.Validate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM transfers WHERE source = $1 OR destination = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, email); err != nil {
		return nil, 0, err
	}

	var transfers []domain.Transfer
	query := `
		SELECT * FROM transfers
		WHERE source = $1 OR destination = $1
		ORDER BY transfer_date DESC
		LIMIT $2 OFFSET $3`
	err := r.db.SelectContext(ctx, &transfers, query, email, params.PageSize, params.Offset())
	return transfers, total, err
}
