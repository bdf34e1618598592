package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"factory-backend/internal/alerts"
	"factory-backend/internal/auth"
	"factory-backend/internal/cache"
	"factory-backend/internal/config"
	"factory-backend/internal/database"
	"factory-backend/internal/db"
	h "factory-backend/internal/http"
	"factory-backend/internal/handlers"
	"factory-backend/internal/health"
	"factory-backend/internal/metrics"
	"factory-backend/internal/middleware"
	"factory-backend/internal/realtime"
	"factory-backend/internal/repositories"
	"factory-backend/internal/repositories/memory"
	"factory-backend/internal/services"
	"factory-backend/internal/storage"
	"factory-backend/internal/timeutil"
	"factory-backend/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate", false, "Apply pending migrations and exit")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := timeutil.SetLocation(cfg.Schedule.Timezone); err != nil {
		log.Fatalf("[Config] Invalid schedule timezone %q: %v", cfg.Schedule.Timezone, err)
	}

	// Store: Postgres in production, in-memory for demos and local work
	var (
		store  repositories.Store
		pool   *pgxpool.Pool
		pinger health.Pinger
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		mem := memory.New()
		if cfg.Database.SeedDemo {
			mem.SeedDemo()
			log.Println("[Store] Seeded demo catalogue")
		}
		store = mem
		log.Println("[Store] Using in-memory store; data is lost on restart")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		var err error
		pool, err = db.Connect(ctx, cfg)
		cancel()
		if err != nil {
			log.Fatalf("[DB] Failed to connect: %v", err)
		}
		defer pool.Close()

		migrator := database.NewMigrator(pool, migrations.FS)
		if err := migrator.RunMigrations(context.Background()); err != nil {
			log.Fatalf("[DB] Migrations failed: %v", err)
		}
		if *migrateOnly {
			log.Println("[DB] Migrations applied, exiting")
			return
		}

		pgStore := repositories.NewPostgresStore(pool)
		store = pgStore
		pinger = pgStore
	}

	// Shortage cache (optional, degrades to direct projection)
	shortageCache := cache.Disabled()
	var cachePinger health.CachePinger
	if cfg.Redis.Enabled {
		c, err := cache.New(cache.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			ShortageTTL: cfg.ShortageTTL(),
		})
		if err != nil {
			log.Printf("[Cache] Redis unavailable, continuing without cache: %v", err)
		} else {
			log.Printf("[Cache] Connected to Redis at %s", cfg.Redis.Addr)
		}
		shortageCache = c
		cachePinger = c
		defer shortageCache.Close()
	}

	// Live updates
	hub := realtime.NewHub(cfg.Server.CorsAllowedOrigins)
	go hub.Run()
	defer hub.Stop()

	// Shortage alerts
	var dispatcher alerts.Dispatcher = alerts.LogDispatcher{}
	if cfg.Alerts.WebhookURL != "" {
		dispatcher = alerts.NewWebhookDispatcher(cfg.Alerts.WebhookURL, cfg.Alerts.Channel, cfg.AlertTimeout())
		log.Println("[Alerts] Shortage alerts go to the configured webhook")
	}
	notifier := alerts.NewAsync(dispatcher, cfg.AlertTimeout())

	// Schedule sheet archive (optional)
	var archive storage.Archiver
	if cfg.Storage.Enabled {
		archiver, err := storage.NewS3Archiver(context.Background(), storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Prefix:    cfg.Storage.Prefix,
		})
		if err != nil {
			log.Printf("[Storage] Archiving disabled: %v", err)
		} else {
			archive = archiver
		}
	}

	// Services
	planService := services.NewPlanService(store, shortageCache, notifier, hub)
	productionService := services.NewProductionService(store, hub)
	scheduleService := services.NewScheduleService(store, shortageCache, hub)
	reportService := services.NewReportService(planService, scheduleService, archive)

	// Auth
	jwtManager := auth.NewJWTManager(cfg)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Handlers
	healthChecker := health.NewHealthChecker(cfg.Database.Driver, pinger, cachePinger)
	router := h.NewRouter(
		handlers.NewPlanHandler(planService),
		handlers.NewProductionHandler(productionService),
		handlers.NewScheduleHandler(scheduleService),
		handlers.NewLaneHandler(scheduleService),
		handlers.NewReportHandler(reportService),
		handlers.NewHealthHandler(healthChecker),
		hub.ServeWS,
		authMiddleware,
	)

	// Pool metrics
	if pool != nil {
		interval := time.Duration(cfg.Metrics.CollectIntervalSeconds) * time.Second
		collector := metrics.NewCollector(pool, interval)
		collector.Start()
		defer collector.Stop()
	}

	// Apply middleware: Panic Recovery -> API Logging -> Metrics -> CORS -> Router
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(middleware.APILogging(middleware.MetricsMiddleware(corsMiddleware(router))))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Server] Listening on %s (store: %s)", addr, cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[Server] %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("[Server] Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Server] Graceful shutdown failed: %v", err)
	}
}
