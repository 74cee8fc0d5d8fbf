package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bloodlink/internal/cache"
	"bloodlink/internal/config"
	"bloodlink/internal/handler"
	"bloodlink/internal/middleware"
	"bloodlink/internal/migrate"
	"bloodlink/internal/pkg/i18n"
	applog "bloodlink/internal/pkg/logger"
	"bloodlink/internal/repository"
	"bloodlink/internal/repository/memory"
	"bloodlink/internal/service"
	"bloodlink/internal/service/export"
)

const sessionPurgeInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := applog.New(cfg.LogLevel, cfg.LogFormat, "bloodlink-api")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.JWTSecret == "" {
		zlog.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := i18n.LoadLabels(cfg.LocalesPath); err != nil {
		zlog.Warn("failed to load labels, falling back to raw values", zap.String("path", cfg.LocalesPath), zap.Error(err))
	}

	repos, closeStore := openStore(ctx, cfg, zlog)
	defer closeStore()

	infra := service.Infra{KV: cache.NopStore{}}

	if cfg.RedisURL != "" {
		redisClient, err := config.NewRedisClient(ctx, cfg)
		if err != nil {
			zlog.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			infra.KV = cache.NewRedisKVStore(redisClient)
		}
	}

	if cfg.MinIOEndpoint != "" {
		minioClient, err := config.NewMinIOClient(ctx, cfg, zlog)
		if err != nil {
			zlog.Warn("minio unavailable, export archive disabled", zap.Error(err))
		} else {
			infra.ObjectStore = export.NewMinIOStore(minioClient, cfg.MinIOBucket)
		}
	}

	services, err := service.NewServices(repos, infra, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to build services", zap.Error(err))
	}
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.NewErrorHandler(zlog),
		UnescapePath: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	handler.RegisterRoutes(app, handlers, services)

	go purgeSessions(ctx, repos.Session, zlog)

	go func() {
		<-ctx.Done()
		zlog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*repository.Repositories, func()) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		zlog.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore().Repositories(), func() {}
	}

	db, err := config.NewPostgresDB(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if cfg.RunMigrations {
		if err := migrate.Up(ctx, db); err != nil {
			db.Close()
			zlog.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	return repository.NewRepositories(db), func() { db.Close() }
}

func purgeSessions(ctx context.Context, sessions repository.SessionRepository, zlog *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeStale(ctx)
			if err != nil {
				zlog.Warn("failed to purge sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				zlog.Info("purged stale sessions", zap.Int64("count", n))
			}
		}
	}
}
