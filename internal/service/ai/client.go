package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

// ErrUnavailable is returned when no AI endpoint is configured.
var ErrUnavailable = errors.New("ai service is not configured")

type EstimateInput struct {
	Facility     string                  `json:"facility"`
	Region       string                  `json:"region,omitempty"`
	BloodType    string                  `json:"blood_type"`
	DonationType domain.DonationType     `json:"donation_type"`
	HorizonDays  int                     `json:"horizon_days"`
	Inventory    domain.InventorySummary `json:"inventory"`
}

type EstimateOutput struct {
	ProjectedDemand  int     `json:"projected_demand"`
	RecommendedStock int     `json:"recommended_stock"`
	Confidence       float64 `json:"confidence"`
	Notes            string  `json:"notes,omitempty"`
}

type MatchRequest struct {
	ID           string              `json:"id"`
	BloodType    string              `json:"blood_type"`
	DonationType domain.DonationType `json:"donation_type"`
	Units        int                 `json:"units"`
	Urgency      domain.Urgency      `json:"urgency"`
	Region       string              `json:"region,omitempty"`
}

type Candidate struct {
	Email               string                  `json:"email"`
	Name                string                  `json:"name"`
	Role                domain.UserRole         `json:"role"`
	Region              string                  `json:"region,omitempty"`
	BloodType           string                  `json:"blood_type,omitempty"`
	AvailableBloodTypes []string                `json:"available_blood_types,omitempty"`
	Inventory           domain.InventorySummary `json:"inventory"`
}

type MatchInput struct {
	Request    MatchRequest `json:"request"`
	Candidates []Candidate  `json:"candidates"`
}

type Match struct {
	Email  string  `json:"email"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

type MatchOutput struct {
	Matches []Match `json:"matches"`
}

// Client calls the external estimation and matching service.
// Results are passed through untouched.
type Client interface {
	Estimate(ctx context.Context, input EstimateInput) (*EstimateOutput, error)
	Match(ctx context.Context, input MatchInput) (*MatchOutput, error)
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type client struct {
	http *resty.Client
	log  *zap.Logger
}

// NewClient returns a client that always fails with ErrUnavailable when baseURL is empty.
func NewClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) Client {
	if baseURL == "" {
		return disabled{}
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}

	return &client{http: rc, log: log.Named("ai")}
}

func (c *client) Estimate(ctx context.Context, input EstimateInput) (*EstimateOutput, error) {
	var out EstimateOutput
	if err := c.post(ctx, "/estimate", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Match(ctx context.Context, input MatchInput) (*MatchOutput, error) {
	var out MatchOutput
	if err := c.post(ctx, "/match", input, &out); err != nil {
		return nil, err
	}
	if out.Matches == nil {
		out.Matches = []Match{}
	}
	return &out, nil
}

func (c *client) post(ctx context.Context, path string, body, result any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		c.log.Error("ai call failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to call ai service: %w", err)
	}

	if resp.IsError() {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		c.log.Warn("ai service returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", msg))
		if resp.StatusCode() < 500 {
			return domain.Validation("ai service rejected input: %s", msg)
		}
		return fmt.Errorf("ai service error: %s (status: %d)", msg, resp.StatusCode())
	}

	c.log.Debug("ai call succeeded", zap.String("path", path), zap.Duration("elapsed", resp.Time()))
	return nil
}

type disabled struct{}

func (disabled) Estimate(context.Context, EstimateInput) (*EstimateOutput, error) {
	return nil, ErrUnavailable
}

func (disabled) Match(context.Context, MatchInput) (*MatchOutput, error) {
	return nil, ErrUnavailable
}
