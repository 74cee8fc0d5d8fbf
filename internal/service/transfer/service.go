package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

// Service keeps the append-only transfer log. Only admins may correct an entry.
type Service interface {
	Record(ctx context.Context, actor *domain.User, input domain.CreateTransferInput) (*domain.Transfer, error)
	ListForFacility(ctx context.Context, email string, params domain.PaginationParams) (domain.PaginatedResponse[domain.Transfer], error)
	Update(ctx context.Context, admin *domain.User, id uuid.UUID, input domain.UpdateTransferInput) (*domain.Transfer, error)
}

type service struct {
	transferRepo repository.TransferRepository
	log          *zap.Logger
	now          func() time.Time
}

func NewService(transferRepo repository.TransferRepository, log *zap.Logger) Service {
	return &service{transferRepo: transferRepo, log: log.Named("transfer"), now: time.Now}
}

func (s *service) validate(t *domain.Transfer) error {
	if t.Source == "" || strings.TrimSpace(t.Destination) == "" {
		return domain.Validation("source and destination are required")
	}
	if t.Source == t.Destination {
		return domain.Validation("source and destination must differ")
	}
	if !domain.IsValidBloodType(t.BloodType) {
		return domain.Validation("invalid blood type %q", t.BloodType)
	}
	if !t.DonationType.IsValid() {
		return domain.Validation("invalid donation type %q", t.DonationType)
	}
	if t.Units <= 0 {
		return domain.Validation("units must be positive")
	}
	if t.Date.After(s.now()) {
		return domain.Validation("transfer date cannot be in the future")
	}
	return nil
}

// Record logs a transfer out of the actor's facility. Admins may record on behalf of any source.
func (s *service) Record(ctx context.Context, actor *domain.User, input domain.CreateTransferInput) (*domain.Transfer, error) {
	if actor == nil || !actor.IsActive() || (!actor.IsFacility() && actor.Role != domain.RoleAdmin) {
		return nil, domain.Permission("only facilities record transfers")
	}

	source := actor.Email
	if actor.Role == domain.RoleAdmin {
		source = input.Source
	} else if input.Source != "" && input.Source != actor.Email {
		return nil, domain.Permission("cannot record transfers for another facility")
	}

	date := s.now()
	if input.Date != nil {
		date = *input.Date
	}

	t := &domain.Transfer{
		ID:           uuid.New(),
		Source:       source,
		Destination:  strings.TrimSpace(input.Destination),
		BloodType:    input.BloodType,
		DonationType: input.DonationType,
		Units:        input.Units,
		Date:         date,
	}
	if err := s.validate(t); err != nil {
		return nil, err
	}
	if err := s.transferRepo.Create(ctx, t); err != nil {
		return nil, domain.Storage(err, "failed to record transfer")
	}

	s.log.Info("transfer recorded",
		zap.Stringer("transfer_id", t.ID),
		zap.String("source", t.Source),
		zap.String("destination", t.Destination),
		zap.Int("units", t.Units))
	return t, nil
}

func (s *service) ListForFacility(ctx context.Context, email string, params domain.PaginationParams) (domain.PaginatedResponse[domain.Transfer], error) {
	params.Validate()
	transfers, total, err := s.transferRepo.ListByFacility(ctx, email, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Transfer]{}, domain.Storage(err, "failed to list transfers")
	}
	if transfers == nil {
		transfers = []domain.Transfer{}
	}
	return domain.NewPaginatedResponse(transfers, params.Page, params.PageSize, total), nil
}

func (s *service) Update(ctx context.Context, admin *domain.User, id uuid.UUID, input domain.UpdateTransferInput) (*domain.Transfer, error) {
	if admin == nil || admin.Role != domain.RoleAdmin {
		return nil, domain.Permission("admin role required")
	}

	t, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err, "failed to get transfer")
	}
	if t == nil {
		return nil, domain.NotFound("transfer not found")
	}

	if input.Destination != nil {
		t.Destination = strings.TrimSpace(*input.Destination)
	}
	if input.BloodType != nil {
		t.BloodType = *input.BloodType
	}
	if input.DonationType != nil {
		t.DonationType = *input.DonationType
	}
	if input.Units != nil {
		t.Units = *input.Units
	}
	if input.Date != nil {
		t.Date = *input.Date
	}
	if err := s.validate(t); err != nil {
		return nil, err
	}

	if err := s.transferRepo.Update(ctx, t); err != nil {
		return nil, domain.Storage(err, "failed to update transfer")
	}
	s.log.Info("transfer corrected", zap.Stringer("transfer_id", id), zap.String("admin", admin.Email))
	return t, nil
}
