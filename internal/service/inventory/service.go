package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

const (
	availabilityKeyPrefix = "inventory:availability:"
	availabilityTTL       = 10 * time.Minute
)

var allBloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

func availabilityKeys() []string {
	keys := make([]string, len(allBloodTypes))
	for i, t := range allBloodTypes {
		keys[i] = availabilityKeyPrefix + t
	}
	return keys
}

type Service interface {
	AddUnit(ctx context.Context, facility *domain.User, input domain.CreateBloodUnitInput) (*domain.BloodUnit, error)
	UpdateUnit(ctx context.Context, facility *domain.User, id uuid.UUID, input domain.UpdateBloodUnitInput) (*domain.BloodUnit, error)
	RemoveUnit(ctx context.Context, facility *domain.User, id uuid.UUID) error
	ListUnits(ctx context.Context, facilityEmail string) ([]domain.BloodUnit, error)
	ExpiringSoon(ctx context.Context, facilityEmail string, within time.Duration) ([]domain.BloodUnit, error)
	Recompute(ctx context.Context, facilityEmail string) (domain.InventorySummary, []string, error)
	SearchAvailability(ctx context.Context, bloodType string) ([]domain.FacilityAvailability, error)
}

type service struct {
	unitRepo   repository.BloodUnitRepository
	userRepo   repository.UserRepository
	aggregator *Aggregator
	kv         cache.KVStore
	log        *zap.Logger
	now        func() time.Time
}

func NewService(
	unitRepo repository.BloodUnitRepository,
	userRepo repository.UserRepository,
	aggregator *Aggregator,
	kv cache.KVStore,
	log *zap.Logger,
) Service {
	if kv == nil {
		kv = cache.NopStore{}
	}
	return &service{
		unitRepo:   unitRepo,
		userRepo:   userRepo,
		aggregator: aggregator,
		kv:         kv,
		log:        log.Named("inventory"),
		now:        time.Now,
	}
}

func requireFacility(user *domain.User) error {
	if user == nil || !user.IsFacility() {
		return domain.Permission("only hospitals and blood banks manage inventory")
	}
	if !user.IsActive() {
		return domain.Permission("account is banned")
	}
	return nil
}

func validateUnit(bloodType string, donationType domain.DonationType, units int, collected, now time.Time) error {
	if !domain.IsValidBloodType(bloodType) {
		return domain.Validation("invalid blood type %q", bloodType)
	}
	if !donationType.IsValid() {
		return domain.Validation("invalid donation type %q", donationType)
	}
	if units <= 0 {
		return domain.Validation("units must be positive")
	}
	if collected.IsZero() {
		return domain.Validation("collection date is required")
	}
	if collected.After(now) {
		return domain.Validation("collection date cannot be in the future")
	}
	return nil
}

func (s *service) AddUnit(ctx context.Context, facility *domain.User, input domain.CreateBloodUnitInput) (*domain.BloodUnit, error) {
	if err := requireFacility(facility); err != nil {
		return nil, err
	}
	if err := validateUnit(input.BloodType, input.DonationType, input.Units, input.CollectionDate, s.now()); err != nil {
		return nil, err
	}

	unit := &domain.BloodUnit{
		ID:             uuid.New(),
		BloodType:      input.BloodType,
		DonationType:   input.DonationType,
		Units:          input.Units,
		CollectionDate: input.CollectionDate,
		ExpirationDate: domain.ExpirationDate(input.CollectionDate, input.DonationType),
		Location:       facility.Email,
	}
	if err := s.unitRepo.Create(ctx, unit); err != nil {
		return nil, domain.Storage(err, "failed to create blood unit")
	}

	s.recompute(ctx, facility.Email)
	return unit, nil
}

func (s *service) UpdateUnit(ctx context.Context, facility *domain.User, id uuid.UUID, input domain.UpdateBloodUnitInput) (*domain.BloodUnit, error) {
	unit, err := s.ownedUnit(ctx, facility, id)
	if err != nil {
		return nil, err
	}

	if input.BloodType != nil {
		unit.BloodType = *input.BloodType
	}
	if input.DonationType != nil {
		unit.DonationType = *input.DonationType
	}
	if input.Units != nil {
		unit.Units = *input.Units
	}
	if input.CollectionDate != nil {
		unit.CollectionDate = *input.CollectionDate
	}
	if err := validateUnit(unit.BloodType, unit.DonationType, unit.Units, unit.CollectionDate, s.now()); err != nil {
		return nil, err
	}
	unit.ExpirationDate = domain.ExpirationDate(unit.CollectionDate, unit.DonationType)

	if err := s.unitRepo.Update(ctx, unit); err != nil {
		return nil, domain.Storage(err, "failed to update blood unit")
	}

	s.recompute(ctx, facility.Email)
	return unit, nil
}

func (s *service) RemoveUnit(ctx context.Context, facility *domain.User, id uuid.UUID) error {
	if _, err := s.ownedUnit(ctx, facility, id); err != nil {
		return err
	}

	if err := s.unitRepo.Delete(ctx, id); err != nil {
		return domain.Storage(err, "failed to delete blood unit")
	}

	s.recompute(ctx, facility.Email)
	return nil
}

func (s *service) ownedUnit(ctx context.Context, facility *domain.User, id uuid.UUID) (*domain.BloodUnit, error) {
	if err := requireFacility(facility); err != nil {
		return nil, err
	}

	unit, err := s.unitRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err, "failed to get blood unit")
	}
	if unit == nil {
		return nil, domain.NotFound("blood unit not found")
	}
	if unit.Location != facility.Email {
		return nil, domain.Permission("blood unit belongs to another facility")
	}
	return unit, nil
}

// recompute keeps the unit mutation even when the projection write fails;
// the next mutation of the facility repairs it.
func (s *service) recompute(ctx context.Context, facility string) {
	if _, _, err := s.aggregator.Recompute(ctx, facility); err != nil {
		s.log.Warn("inventory projection is stale", zap.String("facility", facility), zap.Error(err))
	}
}

func (s *service) Recompute(ctx context.Context, facilityEmail string) (domain.InventorySummary, []string, error) {
	return s.aggregator.Recompute(ctx, facilityEmail)
}

func (s *service) ListUnits(ctx context.Context, facilityEmail string) ([]domain.BloodUnit, error) {
	units, err := s.unitRepo.ListByLocation(ctx, facilityEmail)
	if err != nil {
		return nil, domain.Storage(err, "failed to list blood units")
	}
	if units == nil {
		units = []domain.BloodUnit{}
	}
	return units, nil
}

func (s *service) ExpiringSoon(ctx context.Context, facilityEmail string, within time.Duration) ([]domain.BloodUnit, error) {
	if within <= 0 {
		return nil, domain.Validation("window must be positive")
	}

	units, err := s.unitRepo.ListExpiringBefore(ctx, facilityEmail, s.now().Add(within))
	if err != nil {
		return nil, domain.Storage(err, "failed to list expiring units")
	}
	if units == nil {
		units = []domain.BloodUnit{}
	}
	return units, nil
}

func (s *service) SearchAvailability(ctx context.Context, bloodType string) ([]domain.FacilityAvailability, error) {
	if !domain.IsValidBloodType(bloodType) {
		return nil, domain.Validation("invalid blood type %q", bloodType)
	}

	key := availabilityKeyPrefix + bloodType
	var cached []domain.FacilityAvailability
	if err := cache.GetJSON(ctx, s.kv, key, &cached); err == nil {
		return cached, nil
	}

	facilities, err := s.userRepo.ListFacilitiesWithBloodType(ctx, bloodType)
	if err != nil {
		return nil, domain.Storage(err, "failed to search facilities")
	}

	result := make([]domain.FacilityAvailability, 0, len(facilities))
	for _, f := range facilities {
		result = append(result, domain.FacilityAvailability{
			Email:               f.Email,
			Name:                f.FullName,
			Role:                f.Role,
			Region:              f.Region,
			Mobile:              f.Mobile,
			AvailableBloodTypes: f.AvailableBloodTypes,
			InventorySummary:    f.InventorySummary,
		})
	}

	if err := cache.SetJSON(ctx, s.kv, key, result, availabilityTTL); err != nil {
		s.log.Warn("failed to cache availability", zap.String("blood_type", bloodType), zap.Error(err))
	}
	return result, nil
}
