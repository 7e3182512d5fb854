package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"costumier/internal/availability"
	"costumier/internal/booking"
	"costumier/internal/bot"
	"costumier/internal/catalog"
	"costumier/internal/config"
	"costumier/internal/domain"
	"costumier/internal/events"
	"costumier/internal/httpapi"
	"costumier/internal/logging"
	"costumier/internal/metrics"
	"costumier/internal/notify"
	"costumier/internal/ratelimit"
	"costumier/internal/sheets"
	"costumier/internal/store"
	"costumier/internal/users"
	"costumier/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	db, err := initStore(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := initLimiter(redisClient, &logger)

	// Зеркало в Google Sheets опционально, без него заявки живут только в SQLite
	var sheetsWorker *worker.SheetsWorker
	if mirror := initSheets(ctx, cfg, &logger); mirror != nil {
		sheetsWorker = worker.NewSheetsWorker(db, mirror, redisClient, worker.DefaultRetryPolicy(), &logger)
		go sheetsWorker.Start(ctx)
	}
	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}

	eventBus := events.NewEventBus()

	rateWindow := time.Duration(cfg.Booking.RateLimitWindowSeconds) * time.Second
	bookingService := booking.NewService(db, limiter, eventBus, syncWorker, rateWindow, cfg.Booking.MaxBookingDays, &logger)
	catalogService := catalog.NewService(db, &logger)
	userService := users.NewService(db, cfg.Admins, &logger)
	engine := availability.NewEngine(db, &logger)

	metrics.Register()
	startMonitoring(ctx, cfg, &logger)

	apiServer := httpapi.NewServer(cfg.HTTP, cfg.Uploads.Path, catalogService, bookingService, engine, userService, db, &logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("HTTP API server error")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiServer.Shutdown(shutdownCtx)
	}()

	return startBot(ctx, cfg, eventBus, catalogService, bookingService, userService, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
		return err
	}
	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для загрузок")
		return err
	}
	return nil
}

func initStore(cfg *config.Config, logger *zerolog.Logger) (*store.Store, error) {
	db, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка инициализации базы данных")
		return nil, err
	}

	if err := db.SyncCatalog(context.Background(), cfg.Catalog); err != nil {
		logger.Error().Err(err).Msg("Ошибка синхронизации каталога")
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory state")
	}
	return client
}

// initLimiter builds the booking rate limiter: Redis when configured, with
// an in-memory fallback that covers Redis outages.
func initLimiter(redisClient *redis.Client, logger *zerolog.Logger) domain.BookingLimiter {
	var primary domain.BookingLimiter
	if redisClient != nil {
		primary = ratelimit.NewRedisLimiterWithClient(redisClient)
	}
	return ratelimit.NewFailoverLimiter(primary, ratelimit.NewMemoryLimiter(), logger)
}

func initSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.SheetsMirror {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		logger.Info().Msg("Google Sheets mirror disabled")
		return nil
	}

	client, err := sheets.NewClient(ctx, cfg.Google)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize Google Sheets mirror")
		return nil
	}

	email, _ := sheets.ServiceAccountEmail(cfg.Google.CredentialsFile)
	logger.Info().Str("service_account", email).Msg("Google Sheets mirror initialized")
	return client
}

func startMonitoring(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Prometheus metrics listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func startBot(
	ctx context.Context,
	cfg *config.Config,
	eventBus *events.EventBus,
	catalogService domain.CatalogService,
	bookingService domain.BookingService,
	userService domain.UserService,
	logger *zerolog.Logger,
) error {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("Ошибка создания BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	sink := notify.NewTelegramSink(botAPI, cfg.Telegram.AdminChatID, logger)
	sink.SubscribeAll(eventBus)

	telegramBot := bot.New(botAPI, catalogService, bookingService, userService, logger)

	logger.Info().Msg("Бот запущен...")
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}
