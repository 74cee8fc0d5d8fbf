package notification

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/service/email"
)

type Service interface {
	// FanOut stores one notification per distinct recipient, skipping the actor.
	// Failures are logged and never returned; the result is the number stored.
	FanOut(ctx context.Context, tmpl domain.NotificationTemplate, recipients []string) int
	Notify(ctx context.Context, tmpl domain.NotificationTemplate, recipient string) bool

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListForUser(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkRead(ctx context.Context, id uuid.UUID, email string) error
	MarkAllRead(ctx context.Context, email string) error
	UnreadCount(ctx context.Context, email string) (int64, error)

	Remove(ctx context.Context, id uuid.UUID) error
	ClearForRequest(ctx context.Context, requestID uuid.UUID, types ...domain.NotificationType) int64
	ClearForOffer(ctx context.Context, offerID uuid.UUID, types ...domain.NotificationType) int64
}

type Options struct {
	Concurrency  int
	ListLimit    int
	EmailEnabled bool
}

type service struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	emailSvc  email.Service
	opts      Options
	log       *zap.Logger
}

func NewService(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	emailSvc email.Service,
	opts Options,
	log *zap.Logger,
) Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ListLimit < 1 {
		opts.ListLimit = 50
	}
	return &service{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		emailSvc:  emailSvc,
		opts:      opts,
		log:       log.Named("notification"),
	}
}

func (s *service) FanOut(ctx context.Context, tmpl domain.NotificationTemplate, recipients []string) int {
	targets := distinctRecipients(recipients, tmpl.ActorEmail)
	if len(targets) == 0 {
		return 0
	}

	var delivered atomic.Int32
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for _, recipient := range targets {
		g.Go(func() error {
			notif := tmpl.For(recipient)
			if err := s.notifRepo.Create(ctx, notif); err != nil {
				s.log.Warn("failed to store notification",
					zap.String("type", string(tmpl.Type)),
					zap.String("recipient", recipient),
					zap.Stringer("request_id", uuidOrNil(tmpl.RequestID)),
					zap.Stringer("offer_id", uuidOrNil(tmpl.OfferID)),
					zap.Error(err))
				return nil
			}
			delivered.Add(1)
			s.sendEmail(notif)
			return nil
		})
	}
	_ = g.Wait()

	return int(delivered.Load())
}

func (s *service) Notify(ctx context.Context, tmpl domain.NotificationTemplate, recipient string) bool {
	return s.FanOut(ctx, tmpl, []string{recipient}) == 1
}

func (s *service) sendEmail(notif *domain.Notification) {
	if !s.opts.EmailEnabled || s.emailSvc == nil {
		return
	}

	go func(n domain.Notification) {
		ctx := context.Background()
		name := n.RecipientEmail
		if user, err := s.userRepo.GetByEmail(ctx, n.RecipientEmail); err == nil && user != nil {
			name = user.FullName
		}
		if err := s.emailSvc.SendNotificationEmail(ctx, n.RecipientEmail, name, &n); err != nil {
			s.log.Warn("failed to send notification email",
				zap.String("recipient", n.RecipientEmail),
				zap.Stringer("notification_id", n.ID),
				zap.Error(err))
		}
	}(*notif)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	notif, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err, "failed to get notification")
	}
	if notif == nil {
		return nil, domain.NotFound("notification not found")
	}
	return notif, nil
}

func (s *service) ListForUser(ctx context.Context, email string, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.CapPageSize(s.opts.ListLimit)

	notifications, total, err := s.notifRepo.ListByRecipient(ctx, email, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, domain.Storage(err, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}

	return domain.NewPaginatedResponse(notifications, params.Page, params.PageSize, total), nil
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID, email string) error {
	notif, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notif.RecipientEmail != email {
		return domain.Permission("notification belongs to another user")
	}
	if notif.IsRead {
		return nil
	}

	if err := s.notifRepo.MarkAsRead(ctx, id); err != nil {
		return domain.Storage(err, "failed to mark notification as read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, email string) error {
	if err := s.notifRepo.MarkAllAsRead(ctx, email); err != nil {
		return domain.Storage(err, "failed to mark notifications as read")
	}
	return nil
}

func (s *service) UnreadCount(ctx context.Context, email string) (int64, error) {
	count, err := s.notifRepo.CountUnread(ctx, email)
	if err != nil {
		return 0, domain.Storage(err, "failed to count notifications")
	}
	return count, nil
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.notifRepo.Delete(ctx, id); err != nil {
		return domain.Storage(err, "failed to delete notification")
	}
	return nil
}

func (s *service) ClearForRequest(ctx context.Context, requestID uuid.UUID, types ...domain.NotificationType) int64 {
	n, err := s.notifRepo.DeleteByRequest(ctx, requestID, types...)
	if err != nil {
		s.log.Warn("failed to clear request notifications", zap.Stringer("request_id", requestID), zap.Error(err))
		return 0
	}
	return n
}

func (s *service) ClearForOffer(ctx context.Context, offerID uuid.UUID, types ...domain.NotificationType) int64 {
	n, err := s.notifRepo.DeleteByOffer(ctx, offerID, types...)
	if err != nil {
		s.log.Warn("failed to clear offer notifications", zap.Stringer("offer_id", offerID), zap.Error(err))
		return 0
	}
	return n
}

func distinctRecipients(recipients []string, actor string) []string {
	seen := make(map[string]struct{}, len(recipients))
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r == "" || r == actor {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func uuidOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}
