package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/repository/memory"
)

var (
	hospital = &domain.User{Email: "h@example.org", Role: domain.RoleHospital, Status: domain.UserActive}
	bank     = &domain.User{Email: "b@example.org", Role: domain.RoleBloodBank, Status: domain.UserActive}
	admin    = &domain.User{Email: "a@example.org", Role: domain.RoleAdmin, Status: domain.UserActive}
	donor    = &domain.User{Email: "d@example.org", Role: domain.RoleDonor, Status: domain.UserActive}
)

func newService() Service {
	return NewService(memory.NewStore().Repositories().Transfer, zap.NewNop())
}

func input() domain.CreateTransferInput {
	return domain.CreateTransferInput{
		Destination: bank.Email, BloodType: "A-", DonationType: domain.DonationWholeBlood, Units: 3,
	}
}

func TestRecord_UsesActorAsSource(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	tr, err := svc.Record(ctx, hospital, input())
	require.NoError(t, err)
	assert.Equal(t, hospital.Email, tr.Source)
	assert.False(t, tr.Date.IsZero())

	for _, email := range []string{hospital.Email, bank.Email} {
		page, err := svc.ListForFacility(ctx, email, domain.DefaultPagination())
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.TotalItems)
	}
}

func TestRecord_Guards(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Record(ctx, donor, input())
	assert.ErrorIs(t, err, domain.ErrPermission)

	spoofed := input()
	spoofed.Source = "other@example.org"
	_, err = svc.Record(ctx, hospital, spoofed)
	assert.ErrorIs(t, err, domain.ErrPermission)

	self := input()
	self.Destination = hospital.Email
	_, err = svc.Record(ctx, hospital, self)
	assert.ErrorIs(t, err, domain.ErrValidation)

	future := time.Now().Add(72 * time.Hour)
	later := input()
	later.Date = &future
	_, err = svc.Record(ctx, hospital, later)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdate_AdminOnly(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	tr, err := svc.Record(ctx, hospital, input())
	require.NoError(t, err)

	units := 5
	_, err = svc.Update(ctx, hospital, tr.ID, domain.UpdateTransferInput{Units: &units})
	assert.ErrorIs(t, err, domain.ErrPermission)

	updated, err := svc.Update(ctx, admin, tr.ID, domain.UpdateTransferInput{Units: &units})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Units)

	_, err = svc.Update(ctx, admin, uuid.New(), domain.UpdateTransferInput{Units: &units})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
