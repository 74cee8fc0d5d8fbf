package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bloodlink/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetStatus(ctx context.Context, email string, status domain.UserStatus) error
	Delete(ctx context.Context, email string) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListActiveByRoles(ctx context.Context, roles []domain.UserRole) ([]domain.User, error)
	ListFacilitiesWithBloodType(ctx context.Context, bloodType string) ([]domain.User, error)
	List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error)
	CountAll(ctx context.Context) (int64, error)
}

// InventoryProjectionWriter rebuilds the derived inventory fields of a facility
// from its blood units in one store operation and returns what it wrote.
// Only the inventory aggregator is handed this capability.
type InventoryProjectionWriter interface {
	RecomputeInventoryProjection(ctx context.Context, email string) (domain.InventorySummary, []string, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func NewInventoryProjectionWriter(db *sqlx.DB) InventoryProjectionWriter {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (user_id, email, password_hash, full_name, mobile, region, role, status, blood_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.Mobile,
		user.Region, user.Role, user.Status, user.BloodType,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE user_id = $1`

	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update writes profile fields only. Projection columns are never touched here.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET password_hash = :password_hash, full_name = :full_name, mobile = :mobile,
			region = :region, blood_type = :blood_type, updated_at = NOW()
		WHERE user_id = :user_id`

	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return err
	}
	return expectOne(res, "user not found")
}

func (r *userRepository) SetStatus(ctx context.Context, email string, status domain.UserStatus) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE email = $1`
	res, err := r.db.ExecContext(ctx, query, email, status)
	if err != nil {
		return err
	}
	return expectOne(res, "user not found")
}

func (r *userRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM users WHERE email = $1`
	res, err := r.db.ExecContext(ctx, query, email)
	if err != nil {
		return err
	}
	return expectOne(res, "user not found")
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`
	err := r.db.GetContext(ctx, &exists, query, email)
	return exists, err
}

func (r *userRepository) ListActiveByRoles(ctx context.Context, roles []domain.UserRole) ([]domain.User, error) {
	var users []domain.User

	if len(roles) == 0 {
		query := `SELECT * FROM users WHERE status = 'active' ORDER BY created_at DESC`
		err := r.db.SelectContext(ctx, &users, query)
		return users, err
	}

	roleStrings := make([]string, len(roles))
	for i, role := range roles {
		roleStrings[i] = string(role)
	}

	query := `SELECT * FROM users WHERE status = 'active' AND role = ANY($1) ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &users, query, pq.Array(roleStrings))
	return users, err
}

func (r *userRepository) ListFacilitiesWithBloodType(ctx context.Context, bloodType string) ([]domain.User, error) {
	var users []domain.User
	query := `
		SELECT * FROM users
		WHERE status = 'active' AND role IN ('Hospital', 'BloodBank') AND $1 = ANY(available_blood_types)
		ORDER BY full_name`

	err := r.db.SelectContext(ctx, &users, query, bloodType)
	return users, err
}

func (r *userRepository) List(ctx context.Context, params domain.PaginationParams) ([]domain.User, int64, error) {
	params.Validate()

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, err
	}

	var users []domain.User
	query := `SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := r.db.SelectContext(ctx, &users, query, params.PageSize, params.Offset())
	return users, total, err
}

func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`)
	return count, err
}

const recomputeProjectionQuery = `
	UPDATE users
	SET inventory_summary = (
			SELECT jsonb_build_object(
				'whole_blood', COALESCE(SUM(units) FILTER (WHERE donation_type = 'whole_blood'), 0),
				'plasma', COALESCE(SUM(units) FILTER (WHERE donation_type = 'plasma'), 0),
				'red_blood_cells', COALESCE(SUM(units) FILTER (WHERE donation_type = 'red_blood_cells'), 0))
			FROM blood_units WHERE location = $1),
		available_blood_types = (
			SELECT COALESCE(array_agg(DISTINCT blood_type ORDER BY blood_type), '{}')
			FROM blood_units WHERE location = $1),
		updated_at = $2
	WHERE email = $1
	RETURNING inventory_summary, available_blood_types`

// RecomputeInventoryProjection locks the facility row before aggregating, so the
// UPDATE snapshot is taken after every earlier recompute has committed.
func (r *userRepository) RecomputeInventoryProjection(ctx context.Context, email string) (domain.InventorySummary, []string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.InventorySummary{}, nil, err
	}
	defer tx.Rollback()

	var locked string
	err = tx.GetContext(ctx, &locked, `SELECT email FROM users WHERE email = $1 FOR UPDATE`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.InventorySummary{}, nil, domain.NotFound("facility not found")
	}
	if err != nil {
		return domain.InventorySummary{}, nil, err
	}

	var projection struct {
		Summary    domain.InventorySummary `db:"inventory_summary"`
		BloodTypes pq.StringArray          `db:"available_blood_types"`
	}
	if err := tx.GetContext(ctx, &projection, recomputeProjectionQuery, email, time.Now()); err != nil {
		return domain.InventorySummary{}, nil, err
	}

	if err := tx.Commit(); err != nil {
		return domain.InventorySummary{}, nil, err
	}
	return projection.Summary, []string(projection.BloodTypes), nil
}
