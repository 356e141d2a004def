package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/cache"
	"gunes-backend/internal/config"
	"gunes-backend/internal/database"
	"gunes-backend/internal/delivery"
	"gunes-backend/internal/exchange"
	"gunes-backend/internal/kvkk"
	"gunes-backend/internal/logger"
	"gunes-backend/internal/photo"
	"gunes-backend/internal/ratelimit"
	"gunes-backend/internal/scheduler"
	"gunes-backend/internal/solar"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	database.Init(cfg)

	ctx := context.Background()
	clk := clock.WallClock

	// Redis yoksa önbellek ve rate limit bellek içinde tutulur
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis kullanılamıyor, bellek içi önbelleğe geçiliyor")
	}
	var (
		solarCache cache.Cache
		limiter    ratelimit.Limiter
	)
	if redisClient != nil {
		solarCache = cache.NewRedis(redisClient)
		limiter = ratelimit.NewRedisLimiter(redisClient, "ratelimit", cfg.QuoteSendLimit, cfg.QuoteSendWindow)
	} else {
		solarCache = cache.NewMemory(clk)
		limiter = ratelimit.NewMemoryLimiter(clk, cfg.QuoteSendLimit, cfg.QuoteSendWindow)
	}

	store, err := photo.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Fotoğraf deposu hazırlanamadı")
	}

	registry := delivery.NewRegistryFromConfig(cfg)
	solarClient := solar.NewClient(cfg.NRELAPIURL, cfg.NRELAPIKey, solarCache)
	tcmb := exchange.NewClient(cfg.TCMBRatesURL)
	checker := kvkk.NewChecker(database.DB, clk)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler,
		BodyLimit:    int(photo.MaxUploadSize) + 2<<20,
	})

	app.Use(recover.New())

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.RequestLogger())

	registerRoutes(app, routeDeps{
		cfg:      cfg,
		clk:      clk,
		store:    store,
		registry: registry,
		solar:    solarClient,
		tcmb:     tcmb,
		checker:  checker,
		limiter:  limiter,
	})

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		jobs := scheduler.Jobs(database.DB, clk, checker, tcmb, scheduler.Specs{
			KVKK:        cfg.KVKKCron,
			QuoteExpiry: cfg.QuoteExpiryCron,
			RateSync:    cfg.RateSyncCron,
		})
		sched, err = scheduler.New(config.Location(), jobs)
		if err != nil {
			log.Fatal().Err(err).Msg("Zamanlayıcı başlatılamadı")
		}
		sched.Start()
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("Server çalışıyor")
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Fatal().Err(err).Msg("Server durdu")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Kapatılıyor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP sunucusu düzgün kapatılamadı")
	}
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
