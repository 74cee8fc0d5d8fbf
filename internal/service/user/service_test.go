package user

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bloodlink/internal/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
	"bloodlink/internal/repository/memory"
	"bloodlink/internal/service/inventory"
)

func setup(t *testing.T) (Service, *repository.Repositories, *domain.User, *domain.User) {
	t.Helper()
	repos := memory.NewStore().Repositories()
	ctx := context.Background()

	admin := &domain.User{ID: uuid.New(), Email: "admin@example.org", FullName: "Admin", Role: domain.RoleAdmin, Status: domain.UserActive}
	donor := &domain.User{ID: uuid.New(), Email: "d@example.org", FullName: "Donor", Role: domain.RoleDonor, Status: domain.UserActive}
	require.NoError(t, repos.User.Create(ctx, admin))
	require.NoError(t, repos.User.Create(ctx, donor))

	return NewService(repos.User, repos.Session, nil, zap.NewNop()), repos, admin, donor
}

func TestUpdateProfile(t *testing.T) {
	svc, repos, _, donor := setup(t)
	ctx := context.Background()

	name := "Dana"
	bloodType := "AB+"
	password := "new-password"
	updated, err := svc.UpdateProfile(ctx, donor.Email, domain.UpdateUserInput{FullName: &name, BloodType: &bloodType, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Dana", updated.FullName)

	stored, err := repos.User.GetByEmail(ctx, donor.Email)
	require.NoError(t, err)
	assert.Equal(t, "AB+", *stored.BloodType)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)))

	bad := "Q+"
	_, err = svc.UpdateProfile(ctx, donor.Email, domain.UpdateUserInput{BloodType: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateProfile(ctx, "ghost@example.org", domain.UpdateUserInput{FullName: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetStatus_BanRevokesSessions(t *testing.T) {
	svc, repos, admin, donor := setup(t)
	ctx := context.Background()

	session := &repository.Session{ID: uuid.New(), UserID: donor.ID, TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repos.Session.Create(ctx, session))

	require.NoError(t, svc.SetStatus(ctx, admin, donor.Email, domain.UserBanned))

	stored, _ := repos.User.GetByEmail(ctx, donor.Email)
	assert.Equal(t, domain.UserBanned, stored.Status)
	active, err := repos.Session.GetActiveByTokenHash(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestAdminGuards(t *testing.T) {
	svc, _, admin, donor := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetStatus(ctx, donor, admin.Email, domain.UserBanned), domain.ErrPermission)
	assert.ErrorIs(t, svc.SetStatus(ctx, admin, admin.Email, domain.UserBanned), domain.ErrPermission)
	assert.ErrorIs(t, svc.SetStatus(ctx, admin, donor.Email, "frozen"), domain.ErrValidation)
	assert.ErrorIs(t, svc.Delete(ctx, donor, admin.Email), domain.ErrPermission)

	_, err := svc.List(ctx, donor, domain.DefaultPagination())
	assert.ErrorIs(t, err, domain.ErrPermission)
}

func TestDeleteAndList(t *testing.T) {
	svc, _, admin, donor := setup(t)
	ctx := context.Background()

	page, err := svc.List(ctx, admin, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.TotalItems)

	require.NoError(t, svc.Delete(ctx, admin, donor.Email))
	assert.ErrorIs(t, svc.Delete(ctx, admin, donor.Email), domain.ErrNotFound)

	_, err = svc.GetByEmail(ctx, donor.Email)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type availabilityFixture struct {
	users     Service
	inventory inventory.Service
	admin     *domain.User
	bank      *domain.User
}

func setupAvailability(t *testing.T) *availabilityFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	kv := cache.NewRedisKVStore(client)

	repos := memory.NewStore().Repositories()
	agg := inventory.NewAggregator(repos.Projection, kv, zap.NewNop())
	ctx := context.Background()

	admin := &domain.User{ID: uuid.New(), Email: "admin@example.org", FullName: "Admin", Role: domain.RoleAdmin, Status: domain.UserActive}
	bank := &domain.User{ID: uuid.New(), Email: "bank@example.org", FullName: "City Bank", Role: domain.RoleBloodBank, Status: domain.UserActive}
	require.NoError(t, repos.User.Create(ctx, admin))
	require.NoError(t, repos.User.Create(ctx, bank))

	f := &availabilityFixture{
		users:     NewService(repos.User, repos.Session, agg, zap.NewNop()),
		inventory: inventory.NewService(repos.BloodUnit, repos.User, agg, kv, zap.NewNop()),
		admin:     admin,
		bank:      bank,
	}
	_, err := f.inventory.AddUnit(ctx, bank, domain.CreateBloodUnitInput{
		BloodType: "O-", DonationType: domain.DonationWholeBlood, Units: 4, CollectionDate: time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	return f
}

func (f *availabilityFixture) search(t *testing.T) []domain.FacilityAvailability {
	t.Helper()
	found, err := f.inventory.SearchAvailability(context.Background(), "O-")
	require.NoError(t, err)
	return found
}

func TestSetStatus_BannedFacilityLeavesAvailabilitySearch(t *testing.T) {
	f := setupAvailability(t)
	ctx := context.Background()

	require.Len(t, f.search(t), 1)

	require.NoError(t, f.users.SetStatus(ctx, f.admin, f.bank.Email, domain.UserBanned))
	assert.Empty(t, f.search(t))

	require.NoError(t, f.users.SetStatus(ctx, f.admin, f.bank.Email, domain.UserActive))
	assert.Len(t, f.search(t), 1)
}

func TestDelete_FacilityLeavesAvailabilitySearch(t *testing.T) {
	f := setupAvailability(t)

	require.Len(t, f.search(t), 1)
	require.NoError(t, f.users.Delete(context.Background(), f.admin, f.bank.Email))
	assert.Empty(t, f.search(t))
}

func TestUpdateProfile_FacilityRenameRefreshesAvailability(t *testing.T) {
	f := setupAvailability(t)

	found := f.search(t)
	require.Len(t, found, 1)
	assert.Equal(t, "City Bank", found[0].Name)

	name := "Regional Blood Bank"
	_, err := f.users.UpdateProfile(context.Background(), f.bank.Email, domain.UpdateUserInput{FullName: &name})
	require.NoError(t, err)

	found = f.search(t)
	require.Len(t, found, 1)
	assert.Equal(t, "Regional Blood Bank", found[0].Name)
}
