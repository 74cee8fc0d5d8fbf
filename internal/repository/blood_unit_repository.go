package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodlink/internal/domain"
)

type BloodUnitRepository interface {
	Create(ctx context.Context, unit *domain.BloodUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodUnit, error)
	Update(ctx context.Context, unit *domain.BloodUnit) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByLocation(ctx context.Context, location string) ([]domain.BloodUnit, error)
	ListExpiringBefore(ctx context.Context, location string, before time.Time) ([]domain.BloodUnit, error)
}

type bloodUnitRepository struct {
	db *sqlx.DB
}

func NewBloodUnitRepository(db *sqlx.DB) BloodUnitRepository {
	return &bloodUnitRepository{db: db}
}

func (r *bloodUnitRepository) Create(ctx context.Context, unit *domain.BloodUnit) error {
	query := `
		INSERT INTO blood_units (unit_id, blood_type, donation_type, units, collection_date, expiration_date, location)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		unit.ID, unit.BloodType, unit.DonationType, unit.Units,
		unit.CollectionDate, unit.ExpirationDate, unit.Location,
	).Scan(&unit.CreatedAt, &unit.UpdatedAt)
}

func (r *bloodUnitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodUnit, error) {
	var unit domain.BloodUnit
	query := `SELECT * FROM blood_units WHERE unit_id = $1`

	err := r.db.GetContext(ctx, &unit, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *bloodUnitRepository) Update(ctx context.Context, unit *domain.BloodUnit) error {
	query := `
		UPDATE blood_units
		SET blood_type = :blood_type, donation_type = :donation_type, units = :units,
			collection_date = :collection_date, expiration_date = :expiration_date, updated_at = NOW()
		WHERE unit_id = :unit_id`

	res, err := r.db.NamedExecContext(ctx, query, unit)
	if err != nil {
		return err
	}
	return expectOne(res, "blood unit not found")
}

func (r *bloodUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blood_units WHERE unit_id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "blood unit not found")
}

func (r *bloodUnitRepository) ListByLocation(ctx context.Context, location string) ([]domain.BloodUnit, error) {
	var units []domain.BloodUnit
	query := `SELECT * FROM blood_units WHERE location = $1 ORDER BY expiration_date ASC`
	err := r.db.SelectContext(ctx, &units, query, location)
	return units, err
}

func (r *bloodUnitRepository) ListExpiringBefore(ctx context.Context, location string, before time.Time) ([]domain.BloodUnit, error) {
	var units []domain.BloodUnit
	query := `
		SELECT * FROM blood_units
		WHERE location = $1 AND expiration_date <= $2
		ORDER BY expiration_date ASC`
	err := r.db.SelectContext(ctx, &units, query, location, before)
	return units, err
}
