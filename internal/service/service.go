package service

import (
	"go.uber.org/zap"

	"bloodlink/internal/cache"
	"bloodlink/internal/config"
	"bloodlink/internal/repository"
	"bloodlink/internal/service/ai"
	"bloodlink/internal/service/auth"
	"bloodlink/internal/service/dashboard"
	"bloodlink/internal/service/email"
	"bloodlink/internal/service/export"
	"bloodlink/internal/service/inventory"
	"bloodlink/internal/service/notification"
	"bloodlink/internal/service/offer"
	"bloodlink/internal/service/request"
	"bloodlink/internal/service/transfer"
	"bloodlink/internal/service/user"
)

type Services struct {
	Auth         auth.Service
	User         user.Service
	Email        email.Service
	Notification notification.Service
	Request      request.Service
	Offer        offer.Service
	Inventory    inventory.Service
	Transfer     transfer.Service
	Export       export.Service
	Dashboard    dashboard.Service
	AI           ai.Client
	Matcher      *ai.Matcher
}

// Infra carries the optional backends. Nil members disable the features that need them.
type Infra struct {
	KV          cache.KVStore
	ObjectStore export.ObjectStore
	AI          ai.Client
}

func NewServices(repos *repository.Repositories, infra Infra, cfg *config.Config, log *zap.Logger) (*Services, error) {
	emailService, err := email.NewService(cfg, log)
	if err != nil {
		return nil, err
	}

	aiClient := infra.AI
	if aiClient == nil {
		aiClient = ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AITimeout, log)
	}

	notificationService := notification.NewService(repos.Notification, repos.User, emailService, notification.Options{
		Concurrency:  cfg.FanoutConcurrency,
		ListLimit:    cfg.NotificationListLimit,
		EmailEnabled: cfg.EmailNotifications,
	}, log)

	aggregator := inventory.NewAggregator(repos.Projection, infra.KV, log)

	return &Services{
		Auth:         auth.NewService(repos.User, repos.Session, emailService, cfg, log),
		User:         user.NewService(repos.User, repos.Session, aggregator, log),
		Email:        emailService,
		Notification: notificationService,
		Request:      request.NewService(repos.BloodRequest, repos.User, repos.Notification, notificationService, log),
		Offer:        offer.NewService(repos.BloodOffer, repos.User, notificationService, log),
		Inventory:    inventory.NewService(repos.BloodUnit, repos.User, aggregator, infra.KV, log),
		Transfer:     transfer.NewService(repos.Transfer, log),
		Export:       export.NewService(repos.BloodUnit, infra.ObjectStore, cfg.ArchiveURLTTL, log),
		Dashboard:    dashboard.NewService(repos.User, repos.BloodRequest, repos.BloodOffer, infra.KV, log),
		AI:           aiClient,
		Matcher:      ai.NewMatcher(aiClient, repos.BloodRequest, repos.User, log),
	}, nil
}
