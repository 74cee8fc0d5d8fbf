package ai

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

// Matcher ranks potential responders for a request through the AI client.
type Matcher struct {
	client   Client
	requests repository.BloodRequestRepository
	users    repository.UserRepository
	log      *zap.Logger
}

func NewMatcher(client Client, requests repository.BloodRequestRepository, users repository.UserRepository, log *zap.Logger) *Matcher {
	return &Matcher{client: client, requests: requests, users: users, log: log.Named("matcher")}
}

// Candidates lists active donors with compatible blood and facilities stocking the type, minus the requester.
func (m *Matcher) Candidates(ctx context.Context, req *domain.BloodRequest) ([]Candidate, error) {
	users, err := m.users.ListActiveByRoles(ctx, []domain.UserRole{domain.RoleDonor, domain.RoleHospital, domain.RoleBloodBank})
	if err != nil {
		return nil, domain.Storage(err, "failed to list candidates")
	}

	candidates := make([]Candidate, 0, len(users))
	for _, u := range users {
		if u.Email == req.RequesterEmail || !eligible(u, req.BloodType) {
			continue
		}
		c := Candidate{
			Email:               u.Email,
			Name:                u.FullName,
			Role:                u.Role,
			AvailableBloodTypes: u.AvailableBloodTypes,
			Inventory:           u.InventorySummary,
		}
		if u.Region != nil {
			c.Region = *u.Region
		}
		if u.BloodType != nil {
			c.BloodType = *u.BloodType
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func eligible(u domain.User, bloodType string) bool {
	if u.IsFacility() {
		for _, t := range u.AvailableBloodTypes {
			if domain.CanDonateTo(t, bloodType) {
				return true
			}
		}
		return false
	}
	return u.BloodType != nil && domain.CanDonateTo(*u.BloodType, bloodType)
}

func (m *Matcher) Match(ctx context.Context, requestID uuid.UUID) (*MatchOutput, error) {
	req, err := m.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, domain.Storage(err, "failed to get blood request")
	}
	if req == nil {
		return nil, domain.NotFound("blood request not found")
	}

	candidates, err := m.Candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &MatchOutput{Matches: []Match{}}, nil
	}

	input := MatchInput{
		Request: MatchRequest{
			ID:           req.ID.String(),
			BloodType:    req.BloodType,
			DonationType: req.DonationType,
			Units:        req.Units,
			Urgency:      req.Urgency,
		},
		Candidates: candidates,
	}
	if requester, err := m.users.GetByEmail(ctx, req.RequesterEmail); err == nil && requester != nil && requester.Region != nil {
		input.Request.Region = *requester.Region
	}

	out, err := m.client.Match(ctx, input)
	if err != nil {
		return nil, err
	}
	m.log.Debug("request matched",
		zap.Stringer("request_id", requestID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(out.Matches)))
	return out, nil
}
