package offer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/service/notification"
)

var facilityRoles = []domain.UserRole{domain.RoleHospital, domain.RoleBloodBank}

type Service interface {
	Post(ctx context.Context, creatorEmail string, input domain.CreateOfferInput) (*domain.BloodOffer, error)
	// Claim never reports a lost race as an error; see domain.ClaimResult.
	Claim(ctx context.Context, id uuid.UUID, claimantEmail string) (*domain.ClaimResult, error)
	Cancel(ctx context.Context, id uuid.UUID, ownerEmail string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodOffer, error)
	List(ctx context.Context, status *domain.OfferStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodOffer], error)
}

type service struct {
	offerRepo repository.BloodOfferRepository
	userRepo  repository.UserRepository
	notifSvc  notification.Service
	log       *zap.Logger
	now       func() time.Time
}

func NewService(
	offerRepo repository.BloodOfferRepository,
	userRepo repository.UserRepository,
	notifSvc notification.Service,
	log *zap.Logger,
) Service {
	return &service{
		offerRepo: offerRepo,
		userRepo:  userRepo,
		notifSvc:  notifSvc,
		log:       log.Named("offer"),
		now:       time.Now,
	}
}

func (s *service) facility(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Storage(err, "failed to get user")
	}
	if user == nil {
		return nil, domain.NotFound("user %s not found", email)
	}
	if !user.IsFacility() {
		return nil, domain.Permission("only hospitals and blood banks trade offers")
	}
	if !user.IsActive() {
		return nil, domain.Permission("account is banned")
	}
	return user, nil
}

func (s *service) Post(ctx context.Context, creatorEmail string, input domain.CreateOfferInput) (*domain.BloodOffer, error) {
	if !domain.IsValidBloodType(input.BloodType) {
		return nil, domain.Validation("invalid blood type %q", input.BloodType)
	}
	if !input.DonationType.IsValid() {
		return nil, domain.Validation("invalid donation type %q", input.DonationType)
	}
	if input.Units <= 0 {
		return nil, domain.Validation("units must be positive")
	}
	creator, err := s.facility(ctx, creatorEmail)
	if err != nil {
		return nil, err
	}

	offer := &domain.BloodOffer{
		ID:           uuid.New(),
		CreatorEmail: creator.Email,
		CreatorName:  creator.FullName,
		BloodType:    input.BloodType,
		DonationType: input.DonationType,
		Units:        input.Units,
		Message:      strings.TrimSpace(input.Message),
		Status:       domain.OfferAvailable,
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, domain.Storage(err, "failed to create blood offer")
	}

	recipients, err := s.userRepo.ListActiveByRoles(ctx, facilityRoles)
	if err != nil {
		s.log.Warn("failed to resolve offer recipients", zap.Stringer("offer_id", offer.ID), zap.Error(err))
		return offer, nil
	}
	emails := make([]string, len(recipients))
	for i, u := range recipients {
		emails[i] = u.Email
	}

	units := offer.Units
	message := fmt.Sprintf("%s is offering %d units of %s %s.", creator.FullName, offer.Units, offer.BloodType, label(offer.DonationType))
	if offer.Message != "" {
		message += " " + offer.Message
	}
	delivered := s.notifSvc.FanOut(ctx, domain.NotificationTemplate{
		Type:            domain.NotifOffer,
		ActorEmail:      creator.Email,
		RequesterEmail:  creator.Email,
		RequesterName:   creator.FullName,
		RequesterMobile: creator.Mobile,
		OfferID:         &offer.ID,
		Message:         message,
		BloodType:       offer.BloodType,
		Units:           &units,
	}, emails)

	s.log.Info("offer posted",
		zap.Stringer("offer_id", offer.ID),
		zap.String("creator", creator.Email),
		zap.Int("delivered", delivered))
	return offer, nil
}

// Claim takes an Available offer in a single conditional update.
func (s *service) Claim(ctx context.Context, id uuid.UUID, claimantEmail string) (*domain.ClaimResult, error) {
	claimant, err := s.facility(ctx, claimantEmail)
	if err != nil {
		return nil, err
	}
	offer, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.CreatorEmail == claimant.Email {
		return nil, domain.Permission("cannot claim your own offer")
	}

	ok, err := s.offerRepo.ClaimIf(ctx, id, domain.OfferClaim{Email: claimant.Email, Name: claimant.FullName})
	if err != nil {
		return nil, domain.Storage(err, "failed to claim blood offer")
	}
	if !ok {
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.log.Info("offer claim lost",
			zap.Stringer("offer_id", id),
			zap.String("claimant", claimant.Email),
			zap.String("status", string(current.Status)))
		return &domain.ClaimResult{Claimed: false, Status: current.Status, Offer: current}, nil
	}

	claimedAt := s.now()
	offer.Status = domain.OfferClaimed
	offer.ClaimedByEmail = &claimant.Email
	offer.ClaimedByName = &claimant.FullName
	offer.ClaimedAt = &claimedAt

	resolved := s.notifSvc.ClearForOffer(ctx, id, domain.NotifOffer)
	units := offer.Units
	s.notifSvc.Notify(ctx, domain.NotificationTemplate{
		Type:            domain.NotifClaim,
		ActorEmail:      claimant.Email,
		RequesterEmail:  claimant.Email,
		RequesterName:   claimant.FullName,
		RequesterMobile: claimant.Mobile,
		OfferID:         &offer.ID,
		Message:         fmt.Sprintf("%s claimed your offer of %d units of %s %s.", claimant.FullName, offer.Units, offer.BloodType, label(offer.DonationType)),
		BloodType:       offer.BloodType,
		Units:           &units,
	}, offer.CreatorEmail)

	s.log.Info("offer claimed",
		zap.Stringer("offer_id", id),
		zap.String("claimant", claimant.Email),
		zap.Int64("offers_resolved", resolved))
	return &domain.ClaimResult{Claimed: true, Status: domain.OfferClaimed, Offer: offer}, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, ownerEmail string) error {
	deleted, err := s.offerRepo.DeleteIfAvailable(ctx, id, ownerEmail)
	if err != nil {
		return domain.Storage(err, "failed to delete blood offer")
	}
	if !deleted {
		offer, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if offer.CreatorEmail != ownerEmail {
			return domain.Permission("offer belongs to another facility")
		}
		return domain.Conflict("offer cannot be cancelled while %s", offer.Status)
	}

	cleared := s.notifSvc.ClearForOffer(ctx, id)
	s.log.Info("offer cancelled", zap.Stringer("offer_id", id), zap.Int64("notifications_cleared", cleared))
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodOffer, error) {
	offer, err := s.offerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err, "failed to get blood offer")
	}
	if offer == nil {
		return nil, domain.NotFound("blood offer not found")
	}
	return offer, nil
}

func (s *service) List(ctx context.Context, status *domain.OfferStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodOffer], error) {
	params.Validate()
	if status != nil && *status != domain.OfferAvailable && *status != domain.OfferClaimed {
		return domain.PaginatedResponse[domain.BloodOffer]{}, domain.Validation("invalid status %q", *status)
	}

	offers, total, err := s.offerRepo.List(ctx, status, params)
	if err != nil {
		return domain.PaginatedResponse[domain.BloodOffer]{}, domain.Storage(err, "failed to list blood offers")
	}
	if offers == nil {
		offers = []domain.BloodOffer{}
	}
	return domain.NewPaginatedResponse(offers, params.Page, params.PageSize, total), nil
}

func label(t domain.DonationType) string {
	return strings.ReplaceAll(string(t), "_", " ")
}
