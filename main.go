package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-wallet/config"
	"tournament-wallet/database"
	"tournament-wallet/handlers"
	"tournament-wallet/logging"
	"tournament-wallet/middleware"
	"tournament-wallet/notify"
	"tournament-wallet/services"
	"tournament-wallet/utils"
	"tournament-wallet/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, envFileFound := config.Load()
	logs := logging.New(cfg.LogLevel)
	log := logs.Logger(logging.Application)
	if !envFileFound {
		log.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: without a database the service still serves empty reads.
	storeLog := logs.Logger(logging.Storage)
	var store *database.Client
	if cfg.DatabaseURL == "" {
		log.Warn("⚠️  DATABASE_URL not set, running without storage")
		store = database.Unavailable(errors.New("DATABASE_URL not set"), storeLog)
	} else if s, err := database.Open(cfg.DatabaseURL, storeLog, cfg.TxMaxRetries); err != nil {
		log.Errorf("❌ failed to connect to database: %v", err)
		store = database.Unavailable(err, storeLog)
	} else {
		store = s
		if err := store.Migrate(); err != nil {
			log.Criticalf("failed to migrate database: %v", err)
			os.Exit(1)
		}
	}
	defer store.Close()

	notifyLog := logs.Logger(logging.Notify)
	var hub notify.Hub = notify.Nop{}
	if cfg.RedisURL != "" {
		redisHub, err := notify.NewRedisHub(ctx, cfg.RedisURL, notifyLog)
		if err != nil {
			log.Warnf("⚠️  redis unavailable, live updates disabled: %v", err)
		} else {
			hub = redisHub
			defer redisHub.Close()
		}
	}

	var uploader services.ImageUploader
	if cfg.R2Enabled() {
		r2, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:    cfg.R2AccountID,
			AccessKeyID:  cfg.R2AccessKeyID,
			AccessSecret: cfg.R2AccessSecret,
			Bucket:       cfg.R2Bucket,
			CDNBaseURL:   cfg.CDNBaseURL,
		})
		if err != nil {
			log.Warnf("⚠️  R2 disabled: %v", err)
		} else {
			uploader = r2
		}
	}

	userLog := logs.Logger(logging.Users)
	ledgerLog := logs.Logger(logging.Ledger)
	workerLog := logs.Logger(logging.Workers)
	httpLog := logs.Logger(logging.HTTP)

	identity := services.NewIdentityClient(cfg.IdentityURL, cfg.IdentitySyncURL, cfg.IdentityToken, userLog)
	users := services.NewUserService(store, userLog)
	ledger := services.NewLedgerService(store, hub, ledgerLog)
	referrals := services.NewReferralService(store, hub, ledgerLog)

	h := &handlers.Handler{
		Users:       users,
		Ledger:      ledger,
		Tournaments: services.NewTournamentService(store, hub, logs.Logger(logging.Tournament)),
		Settlement:  services.NewSettlementService(store, hub, logs.Logger(logging.Settlement)),
		Withdrawals: services.NewWithdrawalService(store, hub, logs.Logger(logging.Withdrawal)),
		Games:       services.NewGameService(store, uploader, logs.Logger(logging.Tournament)),
		Settings:    services.NewSettingsService(store, ledgerLog),
		Support:     services.NewSupportService(store, hub, logs.Logger(logging.Support)),
		Referrals:   referrals,
		Hub:         hub,
		Log:         httpLog,
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(logger.New())

	if cfg.GatewayToken != "" {
		// 🔐❗ GLOBAL: Only Gateway requests allowed
		app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, httpLog))
	} else {
		log.Warn("⚠️  GATEWAY_TOKEN not set, gateway authentication disabled")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "storage": store.Available()})
	})

	handlers.SetupRoutes(app, h, middleware.SSEAuthMiddleware(identity, httpLog))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("✅ Server running on :%s", cfg.Port)
		log.Infof("✅ CORS configured for origins: %s", cfg.AllowedOrigins)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if store.Available() {
		g.Go(func() error {
			return workers.NewReferralWorker(referrals, cfg.ReferralInterval, workerLog).Run(gctx)
		})
		g.Go(func() error {
			return workers.NewAuditWorker(ledger, cfg.AuditInterval, workerLog).Run(gctx)
		})
		if cfg.IdentitySyncURL != "" {
			g.Go(func() error {
				return workers.NewProfileSyncWorker(identity, users, cfg.ProfileSyncInterval, workerLog).Run(gctx)
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.Errorf("❌ %v", err)
	}
	log.Info("Server stopped")
}
