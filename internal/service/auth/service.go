package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodlink/internal/config"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/service/email"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const minPasswordLength = 8

type Service interface {
	Register(ctx context.Context, input domain.CreateUserInput, meta *SessionMeta) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, input domain.LoginInput, meta *SessionMeta) (*domain.User, *domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string, meta *SessionMeta) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateAccessToken(token string) (*Claims, error)
}

// SessionMeta describes the client a refresh session was issued to.
type SessionMeta struct {
	UserAgent string
	IPAddress string
}

// Claims identify the caller. Email is carried for lookups only; it grants nothing by itself.
type Claims struct {
	UserID uuid.UUID       `json:"user_id"`
	Email  string          `json:"email"`
	Role   domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	emailSvc    email.Service
	cfg         *config.Config
	log         *zap.Logger
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	emailSvc email.Service,
	cfg *config.Config,
	log *zap.Logger,
) Service {
	return &service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		emailSvc:    emailSvc,
		cfg:         cfg,
		log:         log.Named("auth"),
		now:         time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, input domain.CreateUserInput, meta *SessionMeta) (*domain.User, *domain.TokenPair, error) {
	input.Email = normalizeEmail(input.Email)
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, nil, domain.Validation("a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, domain.Validation("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(input.FullName) == "" {
		return nil, nil, domain.Validation("full name is required")
	}
	if !input.Role.IsValid() || input.Role == domain.RoleAdmin {
		return nil, nil, domain.Validation("invalid role %q", input.Role)
	}
	if input.BloodType != nil && !domain.IsValidBloodType(*input.BloodType) {
		return nil, nil, domain.Validation("invalid blood type %q", *input.BloodType)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, nil, domain.Storage(err, "failed to check email")
	}
	if exists {
		return nil, nil, domain.Conflict("email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(input.FullName),
		Mobile:       input.Mobile,
		Region:       input.Region,
		Role:         input.Role,
		Status:       domain.UserActive,
		BloodType:    input.BloodType,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, domain.Storage(err, "failed to create user")
	}

	tokens, err := s.generateTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	if s.emailSvc != nil {
		go func() {
			if err := s.emailSvc.SendWelcomeEmail(context.Background(), user.Email, user.FullName, user.Role); err != nil {
				s.log.Warn("failed to send welcome email", zap.String("email", user.Email), zap.Error(err))
			}
		}()
	}

	s.log.Info("user registered", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	return user, tokens, nil
}

func (s *service) Login(ctx context.Context, input domain.LoginInput, meta *SessionMeta) (*domain.User, *domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, nil, domain.Storage(err, "failed to get user")
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, nil, domain.Permission("account is banned")
	}

	tokens, err := s.generateTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Refresh rotates a refresh token: the presented session is revoked and a new pair issued.
func (s *service) Refresh(ctx context.Context, refreshToken string, meta *SessionMeta) (*domain.TokenPair, error) {
	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, domain.Storage(err, "failed to get session")
	}
	if session == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.Storage(err, "failed to get user")
	}
	if user == nil || !user.IsActive() {
		return nil, ErrInvalidToken
	}

	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil {
		return nil, domain.Storage(err, "failed to revoke session")
	}
	return s.generateTokenPair(ctx, user, meta)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	session, err := s.sessionRepo.GetActiveByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		return domain.Storage(err, "failed to get session")
	}
	if session == nil {
		return nil
	}
	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil {
		return domain.Storage(err, "failed to revoke session")
	}
	return nil
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *service) generateTokenPair(ctx context.Context, user *domain.User, meta *SessionMeta) (*domain.TokenPair, error) {
	now := s.now()
	accessClaims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTAccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshTokenRaw := uuid.New().String()
	session := &repository.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: now.Add(s.cfg.JWTRefreshExpiry),
	}
	if meta != nil {
		if meta.UserAgent != "" {
			session.UserAgent = &meta.UserAgent
		}
		if meta.IPAddress != "" {
			session.IPAddress = &meta.IPAddress
		}
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, domain.Storage(err, "failed to create session")
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
