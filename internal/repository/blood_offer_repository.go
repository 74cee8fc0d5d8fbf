package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodlink/internal/domain"
)

type BloodOfferRepository interface {
	Create(ctx context.Context, offer *domain.BloodOffer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodOffer, error)
	// ClaimIf moves an offer from Available to Claimed in one statement.
	// It reports false when the offer was no longer Available.
	ClaimIf(ctx context.Context, id uuid.UUID, claim domain.OfferClaim) (bool, error)
	// DeleteIfAvailable removes the offer only while it is Available and owned by creatorEmail.
	DeleteIfAvailable(ctx context.Context, id uuid.UUID, creatorEmail string) (bool, error)
	List(ctx context.Context, status *domain.OfferStatus, params domain.PaginationParams) ([]domain.BloodOffer, int64, error)
	CountByStatus(ctx context.Context) (map[domain.OfferStatus]int64, error)
}

type bloodOfferRepository struct {
	db *sqlx.DB
}

func NewBloodOfferRepository(db *sqlx.DB) BloodOfferRepository {
	return &bloodOfferRepository{db: db}
}

func (r *bloodOfferRepository) Create(ctx context.Context, offer *domain.BloodOffer) error {
	query := `
		INSERT INTO blood_offers (offer_id, creator_email, creator_name, blood_type, donation_type, units, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.db.QueryRowxContext(ctx, query,
		offer.ID, offer.CreatorEmail, offer.CreatorName, offer.BloodType,
		offer.DonationType, offer.Units, offer.Message, offer.Status,
	).Scan(&offer.CreatedAt)
}

func (r *bloodOfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodOffer, error) {
	var offer domain.BloodOffer
	query := `SELECT * FROM blood_offers WHERE offer_id = $1`

	err := r.db.GetContext(ctx, &offer, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *bloodOfferRepository) ClaimIf(ctx context.Context, id uuid.UUID, claim domain.OfferClaim) (bool, error) {
	query := `
		UPDATE blood_offers
		SET status = 'Claimed', claimed_by_email = $2, claimed_by_name = $3, claimed_at = NOW()
		WHERE offer_id = $1 AND status = 'Available'`

	res, err := r.db.ExecContext(ctx, query, id, claim.Email, claim.Name)
	if err != nil {
		return false, err
	}
	return matched(res)
}

func (r *bloodOfferRepository) DeleteIfAvailable(ctx context.Context, id uuid.UUID, creatorEmail string) (bool, error) {
	query := `DELETE FROM blood_offers WHERE offer_id = $1 AND creator_email = $2 AND status = 'Available'`

	res, err := r.db.ExecContext(ctx, query, id, creatorEmail)
	if err != nil {
		return false, err
	}
	return matched(res)
}

func (r *bloodOfferRepository) List(ctx context.Context, status *domain.OfferStatus, params domain.PaginationParams) ([]domain.BloodOffer, int64, error) {
	params.Validate()

	var total int64
	var offers []domain.BloodOffer

	if status != nil {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM blood_offers WHERE status = $1`, *status); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT * FROM blood_offers
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`
		err := r.db.SelectContext(ctx, &offers, query, *status, params.PageSize, params.Offset())
		return offers, total, err
	}

	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM blood_offers`); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT * FROM blood_offers
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &offers, query, params.PageSize, params.Offset())
	return offers, total, err
}

func (r *bloodOfferRepository) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int64, error) {
	var rows []struct {
		Status domain.OfferStatus `db:"status"`
		Count  int64              `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM blood_offers GROUP BY status`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[domain.OfferStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
