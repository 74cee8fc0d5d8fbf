package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/cache"
	"bloodlink/internal/domain"
	"bloodlink/internal/repository"
)

const (
	statsKey = "dashboard:stats"
	statsTTL = 5 * time.Minute
)

type Stats struct {
	TotalUsers      int64                          `json:"total_users"`
	Requests        map[domain.RequestStatus]int64 `json:"requests"`
	Offers          map[domain.OfferStatus]int64   `json:"offers"`
	PendingRequests int64                          `json:"pending_requests"`
	AvailableOffers int64                          `json:"available_offers"`
	GeneratedAt     time.Time                      `json:"generated_at"`
}

type Service interface {
	GetStats(ctx context.Context) (*Stats, error)
}

type service struct {
	userRepo    repository.UserRepository
	requestRepo repository.BloodRequestRepository
	offerRepo   repository.BloodOfferRepository
	kv          cache.KVStore
	log         *zap.Logger
	now         func() time.Time
}

func NewService(
	userRepo repository.UserRepository,
	requestRepo repository.BloodRequestRepository,
	offerRepo repository.BloodOfferRepository,
	kv cache.KVStore,
	log *zap.Logger,
) Service {
	if kv == nil {
		kv = cache.NopStore{}
	}
	return &service{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		kv:          kv,
		log:         log.Named("dashboard"),
		now:         time.Now,
	}
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	var cached Stats
	if err := cache.GetJSON(ctx, s.kv, statsKey, &cached); err == nil {
		return &cached, nil
	}

	stats := &Stats{GeneratedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.userRepo.CountAll(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		counts, err := s.requestRepo.CountByStatus(gctx)
		stats.Requests = counts
		return err
	})
	g.Go(func() error {
		counts, err := s.offerRepo.CountByStatus(gctx)
		stats.Offers = counts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Storage(err, "failed to collect dashboard stats")
	}

	if stats.Requests == nil {
		stats.Requests = map[domain.RequestStatus]int64{}
	}
	if stats.Offers == nil {
		stats.Offers = map[domain.OfferStatus]int64{}
	}
	stats.PendingRequests = stats.Requests[domain.RequestPending]
	stats.AvailableOffers = stats.Offers[domain.OfferAvailable]

	if err := cache.SetJSON(ctx, s.kv, statsKey, stats, statsTTL); err != nil {
		s.log.Warn("failed to cache dashboard stats", zap.Error(err))
	}
	return stats, nil
}
