package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/service/notification"
)

// broadcastRoles receive `request` notifications for broadcast requests.
var broadcastRoles = []domain.UserRole{domain.RoleDonor, domain.RoleHospital, domain.RoleBloodBank}

// solicitationTypes are the notifications consumed once a request is answered.
var solicitationTypes = []domain.NotificationType{domain.NotifRequest, domain.NotifEmergency}

type Service interface {
	CreateBroadcast(ctx context.Context, requesterEmail string, input domain.CreateRequestInput) (*domain.BloodRequest, error)
	CreateDirect(ctx context.Context, requesterEmail string, input domain.CreateDirectRequestInput) (*domain.BloodRequest, error)
	CreateEmergency(ctx context.Context, requesterEmail string, input domain.EmergencyInput) (*domain.BloodRequest, error)

	Accept(ctx context.Context, id uuid.UUID, responderEmail string) (*domain.BloodRequest, error)
	Decline(ctx context.Context, id uuid.UUID, responderEmail string, input domain.DeclineInput) (*domain.BloodRequest, error)
	Complete(ctx context.Context, id uuid.UUID, requesterEmail string) (*domain.BloodRequest, error)
	Cancel(ctx context.Context, id uuid.UUID, actorEmail string) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error)
	List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodRequest], error)
}

type service struct {
	requestRepo repository.BloodRequestRepository
	userRepo    repository.UserRepository
	notifRepo   repository.NotificationRepository
	notifSvc    notification.Service
	log         *zap.Logger
}

func NewService(
	requestRepo repository.BloodRequestRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	notifSvc notification.Service,
	log *zap.Logger,
) Service {
	return &service{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		notifRepo:   notifRepo,
		notifSvc:    notifSvc,
		log:         log.Named("request"),
	}
}

// actor resolves an active user by email.
func (s *service) actor(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Storage(err, "failed to get user")
	}
	if user == nil {
		return nil, domain.NotFound("user %s not found", email)
	}
	if !user.IsActive() {
		return nil, domain.Permission("account is banned")
	}
	return user, nil
}

func validateAsk(bloodType string, donationType domain.DonationType, units int, urgency domain.Urgency) error {
	if !domain.IsValidBloodType(bloodType) {
		return domain.Validation("invalid blood type %q", bloodType)
	}
	if !donationType.IsValid() {
		return domain.Validation("invalid donation type %q", donationType)
	}
	if units <= 0 {
		return domain.Validation("units must be positive")
	}
	if !urgency.IsValid() {
		return domain.Validation("invalid urgency %q", urgency)
	}
	return nil
}

func (s *service) CreateBroadcast(ctx context.Context, requesterEmail string, input domain.CreateRequestInput) (*domain.BloodRequest, error) {
	if err := validateAsk(input.BloodType, input.DonationType, input.Units, input.Urgency); err != nil {
		return nil, err
	}
	requester, err := s.actor(ctx, requesterEmail)
	if err != nil {
		return nil, err
	}

	req := &domain.BloodRequest{
		ID:             uuid.New(),
		Kind:           domain.RequestBroadcast,
		RequesterEmail: requester.Email,
		BloodType:      input.BloodType,
		DonationType:   input.DonationType,
		Units:          input.Units,
		Urgency:        input.Urgency,
		Status:         domain.RequestPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, domain.Storage(err, "failed to create blood request")
	}

	recipients, err := s.userRepo.ListActiveByRoles(ctx, broadcastRoles)
	if err != nil {
		s.log.Warn("failed to resolve broadcast recipients", zap.Stringer("request_id", req.ID), zap.Error(err))
		return req, nil
	}

	delivered := s.notifSvc.FanOut(ctx, s.solicitation(requester, req, domain.NotifRequest), emails(recipients))
	s.log.Info("broadcast request created",
		zap.Stringer("request_id", req.ID),
		zap.String("requester", req.RequesterEmail),
		zap.Int("delivered", delivered))
	return req, nil
}

func (s *service) CreateDirect(ctx context.Context, requesterEmail string, input domain.CreateDirectRequestInput) (*domain.BloodRequest, error) {
	if err := validateAsk(input.BloodType, input.DonationType, input.Units, input.Urgency); err != nil {
		return nil, err
	}
	recipientEmail := strings.ToLower(strings.TrimSpace(input.RecipientEmail))
	if recipientEmail == "" {
		return nil, domain.Validation("recipient_email is required")
	}
	if strings.EqualFold(recipientEmail, requesterEmail) {
		return nil, domain.Validation("cannot send a request to yourself")
	}
	requester, err := s.actor(ctx, requesterEmail)
	if err != nil {
		return nil, err
	}
	recipient, err := s.userRepo.GetByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, domain.Storage(err, "failed to get recipient")
	}
	if recipient == nil || !recipient.IsActive() {
		return nil, domain.NotFound("recipient %s not found", recipientEmail)
	}

	req := &domain.BloodRequest{
		ID:             uuid.New(),
		Kind:           domain.RequestDirect,
		RequesterEmail: requester.Email,
		RecipientEmail: &recipient.Email,
		BloodType:      input.BloodType,
		DonationType:   input.DonationType,
		Units:          input.Units,
		Urgency:        input.Urgency,
		Status:         domain.RequestPending,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, domain.Storage(err, "failed to create blood request")
	}

	s.notifSvc.Notify(ctx, s.solicitation(requester, req, domain.NotifRequest), recipient.Email)
	s.log.Info("direct request created",
		zap.Stringer("request_id", req.ID),
		zap.String("requester", req.RequesterEmail),
		zap.String("recipient", recipient.Email))
	return req, nil
}

func (s *service) CreateEmergency(ctx context.Context, requesterEmail string, input domain.EmergencyInput) (*domain.BloodRequest, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, domain.Validation("message is required")
	}
	bloodType := input.BloodType
	if bloodType == "" {
		bloodType = domain.NotApplicable
	} else if !domain.IsValidBloodType(bloodType) {
		return nil, domain.Validation("invalid blood type %q", bloodType)
	}
	requester, err := s.actor(ctx, requesterEmail)
	if err != nil {
		return nil, err
	}

	req := &domain.BloodRequest{
		ID:             uuid.New(),
		Kind:           domain.RequestEmergency,
		RequesterEmail: requester.Email,
		BloodType:      bloodType,
		DonationType:   domain.DonationWholeBlood,
		Units:          0,
		Urgency:        domain.UrgencyCritical,
		Status:         domain.RequestPending,
		Message:        &message,
	}
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, domain.Storage(err, "failed to create emergency request")
	}

	recipients, err := s.userRepo.ListActiveByRoles(ctx, nil)
	if err != nil {
		s.log.Warn("failed to resolve emergency recipients", zap.Stringer("request_id", req.ID), zap.Error(err))
		return req, nil
	}

	tmpl := s.solicitation(requester, req, domain.NotifEmergency)
	tmpl.Message = message
	tmpl.Units = nil
	delivered := s.notifSvc.FanOut(ctx, tmpl, emails(recipients))
	s.log.Warn("emergency broadcast",
		zap.Stringer("request_id", req.ID),
		zap.String("requester", req.RequesterEmail),
		zap.Int("delivered", delivered))
	return req, nil
}

// Accept moves a Pending request to In Progress. Only the first caller wins.
func (s *service) Accept(ctx context.Context, id uuid.UUID, responderEmail string) (*domain.BloodRequest, error) {
	responder, err := s.actor(ctx, responderEmail)
	if err != nil {
		return nil, err
	}
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canRespond(req, responder); err != nil {
		return nil, err
	}

	ok, err := s.requestRepo.UpdateStatusIf(ctx, id, domain.RequestPending, domain.RequestPatch{
		Status:         domain.RequestInProgress,
		ResponderEmail: &responder.Email,
	})
	if err != nil {
		return nil, domain.Storage(err, "failed to accept blood request")
	}
	if !ok {
		return nil, s.lostTransition(ctx, id, "accepted")
	}

	req.Status = domain.RequestInProgress
	req.ResponderEmail = &responder.Email

	cleared := s.notifSvc.ClearForRequest(ctx, id, solicitationTypes...)
	s.notifSvc.Notify(ctx, domain.NotificationTemplate{
		Type:            domain.NotifResponse,
		ActorEmail:      responder.Email,
		RequesterEmail:  responder.Email,
		RequesterName:   responder.FullName,
		RequesterMobile: responder.Mobile,
		RequestID:       &req.ID,
		Message:         fmt.Sprintf("%s accepted your request for %s.", responder.FullName, describe(req)),
		BloodType:       req.BloodType,
		Units:           unitsOf(req),
		Urgency:         string(req.Urgency),
	}, req.RequesterEmail)

	s.log.Info("request accepted",
		zap.Stringer("request_id", id),
		zap.String("responder", responder.Email),
		zap.Int64("solicitations_cleared", cleared))
	return req, nil
}

// Decline removes the responder's own solicitation and tells the requester.
// Broadcast and emergency requests stay Pending; a direct request becomes Declined.
func (s *service) Decline(ctx context.Context, id uuid.UUID, responderEmail string, input domain.DeclineInput) (*domain.BloodRequest, error) {
	responder, err := s.actor(ctx, responderEmail)
	if err != nil {
		return nil, err
	}
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canRespond(req, responder); err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, domain.Conflict("request is %s", req.Status)
	}

	if err := s.removeSolicitation(ctx, req, responder.Email, input.NotificationID); err != nil {
		return nil, err
	}

	if req.Kind == domain.RequestDirect {
		ok, err := s.requestRepo.UpdateStatusIf(ctx, id, domain.RequestPending, domain.RequestPatch{Status: domain.RequestDeclined})
		if err != nil {
			return nil, domain.Storage(err, "failed to decline blood request")
		}
		if !ok {
			return nil, s.lostTransition(ctx, id, "declined")
		}
		req.Status = domain.RequestDeclined
	}

	message := fmt.Sprintf("%s declined your request for %s.", responder.FullName, describe(req))
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		message = fmt.Sprintf("%s Reason: %s", message, reason)
	}
	s.notifSvc.Notify(ctx, domain.NotificationTemplate{
		Type:            domain.NotifDecline,
		ActorEmail:      responder.Email,
		RequesterEmail:  responder.Email,
		RequesterName:   responder.FullName,
		RequesterMobile: responder.Mobile,
		RequestID:       &req.ID,
		Message:         message,
		BloodType:       req.BloodType,
		Units:           unitsOf(req),
		Urgency:         string(req.Urgency),
	}, req.RequesterEmail)

	s.log.Info("request declined",
		zap.Stringer("request_id", id),
		zap.String("responder", responder.Email),
		zap.String("status", string(req.Status)))
	return req, nil
}

func (s *service) removeSolicitation(ctx context.Context, req *domain.BloodRequest, responder string, notificationID *uuid.UUID) error {
	if notificationID == nil {
		if _, err := s.notifRepo.DeleteForRecipient(ctx, req.ID, responder, solicitationTypes...); err != nil {
			s.log.Warn("failed to remove solicitation", zap.Stringer("request_id", req.ID), zap.Error(err))
		}
		return nil
	}

	notif, err := s.notifSvc.GetByID(ctx, *notificationID)
	if err != nil {
		return err
	}
	if notif.RecipientEmail != responder {
		return domain.Permission("notification belongs to another user")
	}
	if notif.RequestID == nil || *notif.RequestID != req.ID {
		return domain.Validation("notification does not refer to request %s", req.ID)
	}
	return s.notifSvc.Remove(ctx, notif.ID)
}

func (s *service) Complete(ctx context.Context, id uuid.UUID, requesterEmail string) (*domain.BloodRequest, error) {
	requester, err := s.actor(ctx, requesterEmail)
	if err != nil {
		return nil, err
	}
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequesterEmail != requester.Email {
		return nil, domain.Permission("only the requester can complete a request")
	}

	ok, err := s.requestRepo.UpdateStatusIf(ctx, id, domain.RequestInProgress, domain.RequestPatch{Status: domain.RequestFulfilled})
	if err != nil {
		return nil, domain.Storage(err, "failed to complete blood request")
	}
	if !ok {
		return nil, s.lostTransition(ctx, id, "completed")
	}

	req.Status = domain.RequestFulfilled
	s.log.Info("request fulfilled", zap.Stringer("request_id", id))
	return req, nil
}

// Cancel deletes the request and every notification that refers to it, whatever its status.
func (s *service) Cancel(ctx context.Context, id uuid.UUID, actorEmail string) error {
	actor, err := s.actor(ctx, actorEmail)
	if err != nil {
		return err
	}

	req, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if req.RequesterEmail != actor.Email && actor.Role != domain.RoleAdmin {
		return domain.Permission("only the requester or an admin can cancel a request")
	}

	deleted, err := s.requestRepo.Delete(ctx, id)
	if err != nil {
		return domain.Storage(err, "failed to delete blood request")
	}
	if !deleted {
		return domain.NotFound("blood request not found")
	}

	cleared := s.notifSvc.ClearForRequest(ctx, id)
	s.log.Info("request cancelled",
		zap.Stringer("request_id", id),
		zap.String("status", string(req.Status)),
		zap.Int64("notifications_cleared", cleared))
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.BloodRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err, "failed to get blood request")
	}
	if req == nil {
		return nil, domain.NotFound("blood request not found")
	}
	return req, nil
}

func (s *service) List(ctx context.Context, filter domain.RequestFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.BloodRequest], error) {
	params.Validate()
	if filter.Status != nil && !filter.Status.IsValid() {
		return domain.PaginatedResponse[domain.BloodRequest]{}, domain.Validation("invalid status %q", *filter.Status)
	}

	requests, total, err := s.requestRepo.List(ctx, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.BloodRequest]{}, domain.Storage(err, "failed to list blood requests")
	}
	if requests == nil {
		requests = []domain.BloodRequest{}
	}
	return domain.NewPaginatedResponse(requests, params.Page, params.PageSize, total), nil
}

// lostTransition explains why a conditional transition did not match.
func (s *service) lostTransition(ctx context.Context, id uuid.UUID, verb string) error {
	current, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return domain.Storage(err, "failed to get blood request")
	}
	if current == nil {
		return domain.NotFound("blood request not found")
	}
	return domain.Conflict("request cannot be %s while %s", verb, current.Status)
}

func canRespond(req *domain.BloodRequest, responder *domain.User) error {
	if req.RequesterEmail == responder.Email {
		return domain.Permission("cannot respond to your own request")
	}
	if req.Kind == domain.RequestDirect && (req.RecipientEmail == nil || *req.RecipientEmail != responder.Email) {
		return domain.Permission("request is addressed to another user")
	}
	return nil
}

func (s *service) solicitation(requester *domain.User, req *domain.BloodRequest, kind domain.NotificationType) domain.NotificationTemplate {
	return domain.NotificationTemplate{
		Type:            kind,
		ActorEmail:      requester.Email,
		RequesterEmail:  requester.Email,
		RequesterName:   requester.FullName,
		RequesterMobile: requester.Mobile,
		RequestID:       &req.ID,
		Message:         fmt.Sprintf("%s needs %s (%s urgency).", requester.FullName, describe(req), req.Urgency),
		BloodType:       req.BloodType,
		Units:           unitsOf(req),
		Urgency:         string(req.Urgency),
	}
}

func describe(req *domain.BloodRequest) string {
	if req.Units == 0 {
		return req.BloodType + " blood"
	}
	unit := "units"
	if req.Units == 1 {
		unit = "unit"
	}
	return fmt.Sprintf("%d %s of %s %s", req.Units, unit, req.BloodType, strings.ReplaceAll(string(req.DonationType), "_", " "))
}

func unitsOf(req *domain.BloodRequest) *int {
	if req.Units == 0 {
		return nil
	}
	units := req.Units
	return &units
}

func emails(users []domain.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Email
	}
	return out
}
