package dashboard

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

	"bloodlink/internal/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository/memory"
)

func TestGetStats_CachedForFiveMinutes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repos := memory.NewStore().Repositories()
	ctx := context.Background()
	svc := NewService(repos.User, repos.BloodRequest, repos.BloodOffer, cache.NewRedisKVStore(client), zap.NewNop())

	require.NoError(t, repos.User.Create(ctx, &domain.User{ID: uuid.New(), Email: "q@example.org", Role: domain.RoleIndividual, Status: domain.UserActive}))
	require.NoError(t, repos.BloodRequest.Create(ctx, &domain.BloodRequest{
		ID: uuid.New(), Kind: domain.RequestBroadcast, RequesterEmail: "q@example.org", BloodType: "A+",
		DonationType: domain.DonationPlasma, Units: 1, Urgency: domain.UrgencyLow, Status: domain.RequestPending,
	}))
	require.NoError(t, repos.BloodOffer.Create(ctx, &domain.BloodOffer{
		ID: uuid.New(), CreatorEmail: "h@example.org", BloodType: "A+", DonationType: domain.DonationPlasma,
		Units: 2, Status: domain.OfferAvailable,
	}))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.PendingRequests)
	assert.EqualValues(t, 1, stats.AvailableOffers)
	assert.True(t, mr.Exists(statsKey))

	require.NoError(t, repos.User.Create(ctx, &domain.User{ID: uuid.New(), Email: "d@example.org", Role: domain.RoleDonor, Status: domain.UserActive}))
	cached, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cached.TotalUsers)

	mr.FastForward(statsTTL + time.Second)
	fresh, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fresh.TotalUsers)
}

func TestGetStats_WithoutCache(t *testing.T) {
	repos := memory.NewStore().Repositories()
	svc := NewService(repos.User, repos.BloodRequest, repos.BloodOffer, nil, zap.NewNop())

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalUsers)
	assert.NotNil(t, stats.Requests)
	assert.NotNil(t, stats.Offers)
}
