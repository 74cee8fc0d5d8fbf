package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodlink/internal/config"
	"bloodlink/internal/domain"
	"bloodlink/internal/middleware"
	"bloodlink/internal/repository"
	"bloodlink/internal/repository/memory"
	"bloodlink/internal/service"
)

const testPassword = "correct-horse"

type testEnv struct {
	app   *fiber.App
	repos *repository.Repositories
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:             "test-secret",
		JWTAccessExpiry:       time.Hour,
		JWTRefreshExpiry:      24 * time.Hour,
		FanoutConcurrency:     4,
		NotificationListLimit: 50,
	}
	repos := memory.NewStore().Repositories()
	services, err := service.NewServices(repos, service.Infra{}, cfg, zap.NewNop())
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.NewErrorHandler(zap.NewNop())})
	RegisterRoutes(app, NewHandlers(services), services)
	return &testEnv{app: app, repos: repos}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (e *testEnv) register(t *testing.T, email string, role domain.UserRole, bloodType string) string {
	t.Helper()
	input := fiber.Map{
		"email":     email,
		"password":  testPassword,
		"full_name": "Test " + string(role),
		"role":      role,
	}
	if bloodType != "" {
		input["blood_type"] = bloodType
	}
	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", "", input)
	require.Equal(t, http.StatusCreated, status, body)
	return body["access_token"].(string)
}

func (e *testEnv) admin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.repos.User.Create(context.Background(), &domain.User{
		ID: uuid.New(), Email: "admin@example.org", PasswordHash: string(hash), FullName: "Admin",
		Role: domain.RoleAdmin, Status: domain.UserActive,
	}))

	status, body := e.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "admin@example.org", "password": testPassword})
	require.Equal(t, http.StatusOK, status, body)
	return body["access_token"].(string)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email": "Dana@Example.org", "password": testPassword, "full_name": "Dana", "role": "Donor", "blood_type": "O-",
	})
	require.Equal(t, http.StatusCreated, status)
	refresh := body["refresh_token"].(string)

	status, body = env.do(t, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email": "dana@example.org", "password": testPassword, "full_name": "Dana", "role": "Donor",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])
	assert.NotEmpty(t, body["trace_id"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "dana@example.org", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"email": "dana@example.org", "password": testPassword})
	require.Equal(t, http.StatusOK, status)
	access := body["access_token"].(string)

	status, body = env.do(t, http.MethodGet, "/api/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dana@example.org", body["email"])

	status, body = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", fiber.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, status)
	rotated := body["refresh_token"].(string)

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", fiber.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPost, "/api/v1/auth/logout", "", fiber.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, status)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/v1/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	status, _ = env.do(t, http.MethodGet, "/api/v1/requests", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBannedUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.admin(t)
	donor := env.register(t, "d@example.org", domain.RoleDonor, "A+")

	status, _ := env.do(t, http.MethodPatch, "/api/v1/users/d@example.org/status", adminToken, fiber.Map{"status": "banned"})
	require.Equal(t, http.StatusNoContent, status)

	status, body := env.do(t, http.MethodGet, "/api/v1/users/me", donor, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])
}

func TestRequestLifecycle(t *testing.T) {
	env := newTestEnv(t)
	requester := env.register(t, "q@example.org", domain.RoleIndividual, "A+")
	donor := env.register(t, "d@example.org", domain.RoleDonor, "O-")
	hospital := env.register(t, "h@example.org", domain.RoleHospital, "")

	status, body := env.do(t, http.MethodPost, "/api/v1/requests", requester, fiber.Map{
		"blood_type": "A+", "donation_type": "whole_blood", "units": 2, "urgency": "High",
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)
	assert.Equal(t, "Pending", body["status"])

	status, body = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", donor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/requests/"+id+"/accept", requester, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = env.do(t, http.MethodPost, "/api/v1/requests/"+id+"/accept", donor, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "In Progress", body["status"])

	status, body = env.do(t, http.MethodPost, "/api/v1/requests/"+id+"/accept", hospital, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", hospital, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["count"])

	status, body = env.do(t, http.MethodGet, "/api/v1/requests?scope=responding", donor, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_items"])

	status, body = env.do(t, http.MethodPost, "/api/v1/requests/"+id+"/complete", requester, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Fulfilled", body["status"])

	status, _ = env.do(t, http.MethodPost, "/api/v1/requests/not-a-uuid/accept", donor, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/requests?scope=everything", donor, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateRequest_Validation(t *testing.T) {
	env := newTestEnv(t)
	requester := env.register(t, "q@example.org", domain.RoleIndividual, "")

	status, body := env.do(t, http.MethodPost, "/api/v1/requests", requester, fiber.Map{
		"blood_type": "C+", "donation_type": "whole_blood", "units": 1, "urgency": "Low",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestDeclineAndCancel(t *testing.T) {
	env := newTestEnv(t)
	requester := env.register(t, "q@example.org", domain.RoleIndividual, "")
	donor := env.register(t, "d@example.org", domain.RoleDonor, "B+")

	status, body := env.do(t, http.MethodPost, "/api/v1/requests/direct", requester, fiber.Map{
		"recipient_email": "d@example.org", "blood_type": "B+", "donation_type": "plasma", "units": 1, "urgency": "Medium",
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, body = env.do(t, http.MethodPost, "/api/v1/requests/"+id+"/decline", donor, fiber.Map{"reason": "travelling"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Declined", body["status"])

	status, body = env.do(t, http.MethodGet, "/api/v1/notifications", requester, nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Contains(t, data[0].(map[string]any)["message"], "Reason: travelling")

	status, _ = env.do(t, http.MethodDelete, "/api/v1/requests/"+id, donor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodDelete, "/api/v1/requests/"+id, requester, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = env.do(t, http.MethodGet, "/api/v1/requests/"+id, requester, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOfferClaim(t *testing.T) {
	env := newTestEnv(t)
	hospital := env.register(t, "h@example.org", domain.RoleHospital, "")
	bank := env.register(t, "b@example.org", domain.RoleBloodBank, "")
	other := env.register(t, "h2@example.org", domain.RoleHospital, "")
	donor := env.register(t, "d@example.org", domain.RoleDonor, "A+")

	status, _ := env.do(t, http.MethodPost, "/api/v1/offers", donor, fiber.Map{"blood_type": "A+", "donation_type": "plasma", "units": 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodPost, "/api/v1/offers", hospital, fiber.Map{"blood_type": "A+", "donation_type": "plasma", "units": 3})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, body = env.do(t, http.MethodPost, "/api/v1/offers/"+id+"/claim", bank, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["claimed"])

	status, body = env.do(t, http.MethodPost, "/api/v1/offers/"+id+"/claim", other, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["claimed"])
	assert.Equal(t, "Claimed", body["status"])

	status, body = env.do(t, http.MethodGet, "/api/v1/offers?status=Available", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["total_items"])
}

func TestInventoryAndAvailability(t *testing.T) {
	env := newTestEnv(t)
	hospital := env.register(t, "h@example.org", domain.RoleHospital, "")
	donor := env.register(t, "d@example.org", domain.RoleDonor, "A+")

	status, body := env.do(t, http.MethodPost, "/api/v1/inventory/units", hospital, fiber.Map{
		"blood_type": "AB-", "donation_type": "red_blood_cells", "units": 4, "collection_date": time.Now().UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, _ = env.do(t, http.MethodGet, "/api/v1/inventory/units", donor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/availability/AB-", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+donor)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var facilities []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&facilities))
	require.Len(t, facilities, 1)
	assert.Equal(t, "h@example.org", facilities[0]["email"])
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	donor := env.register(t, "d@example.org", domain.RoleDonor, "A+")
	adminToken := env.admin(t)

	status, _ := env.do(t, http.MethodGet, "/api/v1/dashboard/stats", donor, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := env.do(t, http.MethodGet, "/api/v1/dashboard/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total_users"])

	status, body = env.do(t, http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total_items"])
}

func TestEstimate_AIDisabled(t *testing.T) {
	env := newTestEnv(t)
	hospital := env.register(t, "h@example.org", domain.RoleHospital, "")

	status, body := env.do(t, http.MethodPost, "/api/v1/ai/estimate", hospital, fiber.Map{"blood_type": "O+", "donation_type": "plasma"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["code"])
}
