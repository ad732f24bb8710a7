package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/unifyevents/backend/internal/auth"
	"github.com/unifyevents/backend/internal/config"
	"github.com/unifyevents/backend/internal/database"
	"github.com/unifyevents/backend/internal/handler"
	"github.com/unifyevents/backend/internal/middleware"
	"github.com/unifyevents/backend/internal/queue"
	"github.com/unifyevents/backend/internal/repository"
	"github.com/unifyevents/backend/internal/router"
	queuepub "github.com/unifyevents/backend/internal/service"
	"github.com/unifyevents/backend/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err := database.RunMigrations(dsn); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := database.Open(dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	signer, err := storage.NewSigner(
		cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey,
		cfg.StorageBucket, cfg.StorageRegion, cfg.StorageUseSSL, cfg.SignTTLSec,
	)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	blacklist := repository.NewBlacklistRepo(db)
	events := repository.NewEventRepo(db)
	slots := repository.NewSlotRepo(db)
	details := repository.NewDetailsRepo(db)
	constraints := repository.NewConstraintRepo(db)
	categories := repository.NewCategoryRepo(db)

	tokenSvc := auth.NewService(cfg.JWTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays,
		cfg.CookieSecure(), users, blacklist)

	// Opportunistic blacklist sweep; expired entries could not validate
	// anyway, this just keeps the table small.
	go func() {
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := blacklist.PruneExpired(ctx); err != nil {
				log.Printf("blacklist prune: %v", err)
			} else if n > 0 {
				log.Printf("blacklist prune: removed %d entries", n)
			}
			cancel()
			time.Sleep(time.Hour)
		}
	}()

	// Audit trail consumer; reconnects forever in the background.
	go queue.StartAuditConsumer(queuepub.BrokerURL(), queuepub.AuditQueueName)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response cache disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Metrics())
	e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, tokenSvc, users), tokenSvc)
	router.RegisterBrowse(e,
		handler.NewBrowseHandler(events, slots, details, constraints),
		handler.NewTaxonomyHandler(categories, events),
		middleware.ResponseCache(config.LoadCacheConfig(), rdb))
	router.RegisterOrganiser(e,
		handler.NewEventHandler(events, slots, details, constraints, signer),
		handler.NewTaxonomyHandler(categories, events),
		tokenSvc)
	router.RegisterSecureImages(e, handler.NewImageHandler(events, signer), tokenSvc)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
