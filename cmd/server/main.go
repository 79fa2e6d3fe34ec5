package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"slotbook/internal/access"
	"slotbook/internal/audit"
	"slotbook/internal/availability"
	"slotbook/internal/bookingid"
	"slotbook/internal/calendar"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/httpapi"
	"slotbook/internal/metrics"
	"slotbook/internal/notify"
	"slotbook/internal/service"
	"slotbook/internal/sheets"
	"slotbook/internal/worker"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SLOTBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.SeedAdmins(ctx, cfg.Admins); err != nil {
		logger.Fatal().Err(err).Msg("seed admins error")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	bus := events.NewBus()
	engine := availability.NewEngine(db, cfg.BlackoutDays())
	cache := calendar.NewCache(rdb, cfg.CacheTTL(), &logger)
	aggregator := calendar.NewAggregator(db, engine, cache, &logger)

	// Every booking write invalidates the cached month it touches.
	bus.SubscribeAll(func(e events.Event) {
		aggregator.Invalidate(context.Background(), e.Booking.Date)
	})

	bookingSvc := service.NewBookingService(
		db, engine, db, bus, db, bookingid.New(),
		cfg.BookingMaxAdvance(), cfg.QueryTimeout(), &logger,
	)
	accessSvc := access.NewService(db, db, logger)

	var notifier notify.Notifier = notify.NewLogNotifier(&logger)
	if cfg.Telegram.BotToken != "" && cfg.Telegram.AdminChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		bot.Debug = cfg.Telegram.Debug
		notifier = notify.NewTelegramNotifier(bot, cfg.Telegram.AdminChatID, &logger)
	}
	notify.Subscribe(bus, notifier, &logger)

	if cfg.Sheets.Enabled {
		sheetSvc, err := sheets.NewSheetsService(ctx,
			cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets client error")
		}
		syncWorker := worker.NewSyncWorker(db, sheetSvc, cfg.SheetsInterval(), &logger)
		go syncWorker.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, database.BackupConfig{
			Enabled:       cfg.Backup.Enabled,
			IntervalHours: cfg.Backup.IntervalHours,
			Path:          cfg.Backup.Path,
			RetentionDays: cfg.Backup.RetentionDays,
		}, &logger)
		go backup.Start(ctx)
	}

	if cfg.Audit.Enabled {
		auditSvc := audit.NewService(audit.Config{
			ExportDir:     cfg.Audit.ExportDir,
			ExportOnStart: cfg.Audit.ExportOnStart,
		}, db, audit.NewExcelizeWriter, notifier, &logger)
		auditSvc.Start()
		defer auditSvc.Stop()
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	api := httpapi.NewHTTPServer(cfg.Server.Port, bookingSvc, engine, aggregator, accessSvc, cfg.Server.APIKey, &logger)
	logger.Info().Msg("slotbook started")
	if err := api.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
