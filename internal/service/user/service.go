package user

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

type Service interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, email string, input domain.UpdateUserInput) (*domain.User, error)
	SetStatus(ctx context.Context, admin *domain.User, email string, status domain.UserStatus) error
	Delete(ctx context.Context, admin *domain.User, email string) error
	List(ctx context.Context, admin *domain.User, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error)
}

// AvailabilityCache is told when a facility appears in or drops out of
// availability search, or is shown under a new name.
type AvailabilityCache interface {
	InvalidateAvailability(ctx context.Context, facility string)
}

type noAvailabilityCache struct{}

func (noAvailabilityCache) InvalidateAvailability(context.Context, string) {}

type service struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	availability AvailabilityCache
	log          *zap.Logger
}

func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, availability AvailabilityCache, log *zap.Logger) Service {
	if availability == nil {
		availability = noAvailabilityCache{}
	}
	return &service{userRepo: userRepo, sessionRepo: sessionRepo, availability: availability, log: log.Named("user")}
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Storage(err, "failed to get user")
	}
	if user == nil {
		return nil, domain.NotFound("user %s not found", email)
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, email string, input domain.UpdateUserInput) (*domain.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	renamed := false
	if input.FullName != nil {
		name := strings.TrimSpace(*input.FullName)
		if name == "" {
			return nil, domain.Validation("full name cannot be empty")
		}
		renamed = name != user.FullName
		user.FullName = name
	}
	if input.Mobile != nil {
		user.Mobile = input.Mobile
	}
	if input.Region != nil {
		user.Region = input.Region
	}
	if input.BloodType != nil {
		if !domain.IsValidBloodType(*input.BloodType) {
			return nil, domain.Validation("invalid blood type %q", *input.BloodType)
		}
		user.BloodType = input.BloodType
	}
	if input.Password != nil && *input.Password != "" {
		if len(*input.Password) < 8 {
			return nil, domain.Validation("password must be at least 8 characters")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, domain.Storage(err, "failed to update user")
	}
	if renamed && user.IsFacility() {
		s.availability.InvalidateAvailability(ctx, user.Email)
	}
	return user, nil
}

func requireAdmin(actor *domain.User, target string) error {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return domain.Permission("admin role required")
	}
	if actor.Email == target {
		return domain.Permission("cannot modify your own account")
	}
	return nil
}

// SetStatus bans or reinstates a user. Banning revokes every refresh session.
func (s *service) SetStatus(ctx context.Context, admin *domain.User, email string, status domain.UserStatus) error {
	if err := requireAdmin(admin, email); err != nil {
		return err
	}
	if !status.IsValid() {
		return domain.Validation("invalid status %q", status)
	}
	target, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.userRepo.SetStatus(ctx, email, status); err != nil {
		return domain.Storage(err, "failed to update user status")
	}
	if status == domain.UserBanned {
		if err := s.sessionRepo.RevokeAllForUser(ctx, target.ID); err != nil {
			s.log.Warn("failed to revoke sessions", zap.String("email", email), zap.Error(err))
		}
	}
	if target.IsFacility() && target.Status != status {
		s.availability.InvalidateAvailability(ctx, email)
	}

	s.log.Info("user status changed",
		zap.String("email", email),
		zap.String("status", string(status)),
		zap.String("admin", admin.Email))
	return nil
}

func (s *service) Delete(ctx context.Context, admin *domain.User, email string) error {
	if err := requireAdmin(admin, email); err != nil {
		return err
	}
	target, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, email); err != nil {
		return domain.Storage(err, "failed to delete user")
	}
	if target.IsFacility() {
		s.availability.InvalidateAvailability(ctx, email)
	}
	s.log.Info("user deleted", zap.String("email", email), zap.String("admin", admin.Email))
	return nil
}

func (s *service) List(ctx context.Context, admin *domain.User, params domain.PaginationParams) (domain.PaginatedResponse[domain.User], error) {
	if admin == nil || admin.Role != domain.RoleAdmin {
		return domain.PaginatedResponse[domain.User]{}, domain.Permission("admin role required")
	}
	params.Validate()

	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return domain.PaginatedResponse[domain.User]{}, domain.Storage(err, "failed to list users")
	}
	if users == nil {
		users = []domain.User{}
	}
	return domain.NewPaginatedResponse(users, params.Page, params.PageSize, total), nil
}
