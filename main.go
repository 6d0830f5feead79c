package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"venue-pulse/internal/audit"
	"venue-pulse/internal/auth"
	"venue-pulse/internal/breaker"
	"venue-pulse/internal/forecast/application"
	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/forecast/infrastructure/feeds"
	"venue-pulse/internal/forecast/infrastructure/memory"
	forecastrepo "venue-pulse/internal/forecast/infrastructure/postgres"
	forecasthttp "venue-pulse/internal/forecast/interfaces/http"
	"venue-pulse/internal/forecast/interfaces/publisher"
	"venue-pulse/internal/forecast/notify"
	"venue-pulse/internal/observability/metrics"

	"github.com/gorilla/handlers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	venueCfg, err := application.LoadVenueConfig()
	if err != nil {
		logger.Fatalf("venue config error: %v", err)
	}

	var db *sql.DB
	var configStore application.ConfigStore = memory.NewConfigStore(venueCfg, cfg.VenueConfigWritePath)
	var auditLogger audit.Logger = audit.NewLogLogger(logger)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		repo := forecastrepo.NewConfigRepository(db, venueCfg.LocationID, forecastrepo.WithFallbackConfig(venueCfg))
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("config schema error: %v", err)
		}
		configStore = repo

		auditRepo := audit.NewRepository(db)
		if err := auditRepo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("audit schema error: %v", err)
		}
		auditLogger = auditRepo
	}

	metrics.Init(db, logger)

	sources, err := buildSources(cfg, logger)
	if err != nil {
		logger.Fatalf("feed sources error: %v", err)
	}

	carryover, err := memory.NewCarryoverCache(cfg.CarryoverCacheSize)
	if err != nil {
		logger.Fatalf("carryover cache error: %v", err)
	}

	opts := []application.ServiceOption{
		application.WithCarryoverCache(carryover),
		application.WithLogger(logger),
	}
	switch {
	case len(cfg.KafkaBrokers) > 0:
		writer := publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaSnapshotTopic)
		defer writer.Close()
		kafkaPublisher, err := publisher.NewKafkaPublisher(writer)
		if err != nil {
			logger.Fatalf("snapshot publisher error: %v", err)
		}
		opts = append(opts, application.WithPublisher(kafkaPublisher))
	case cfg.LogSnapshots:
		opts = append(opts, application.WithPublisher(publisher.NewLoggingPublisher(logger)))
	}
	if cfg.WageAlertWebhookURL != "" {
		opts = append(opts, application.WithWageAlertNotifier(notify.NewWebhookNotifier(cfg.WageAlertWebhookURL)))
	}

	snapshotService, err := application.NewSnapshotService(configStore, sources, opts...)
	if err != nil {
		logger.Fatalf("snapshot service error: %v", err)
	}
	defaultMode, err := application.ParseMode(cfg.SnapshotMode, forecast.ModeSample)
	if err != nil {
		logger.Fatalf("snapshot mode error: %v", err)
	}
	snapshotHandler, err := forecasthttp.NewHandler(snapshotService, defaultMode, logger, forecasthttp.WithAuditLogger(auditLogger))
	if err != nil {
		logger.Fatalf("snapshot handler error: %v", err)
	}

	router := forecasthttp.NewRouter(snapshotHandler)
	router.Handle("/metrics", promhttp.Handler())

	var handler http.Handler = router
	if cfg.JWTSecret != "" {
		venueLocation := auth.LocationFunc(func(ctx context.Context) (string, error) {
			current, err := snapshotService.Config(ctx)
			return current.LocationID, err
		})
		guard, err := auth.NewGuard([]byte(cfg.JWTSecret), venueLocation,
			auth.WithProtectedReads(cfg.AuthProtectReads),
			auth.WithExemptPaths("/healthz", "/metrics"),
			auth.WithGuardLogger(logger),
		)
		if err != nil {
			logger.Fatalf("auth guard error: %v", err)
		}
		handler = guard.Wrap(handler)
	}
	handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(handler)
	handler = handlers.RecoveryHandler(handlers.RecoveryLogger(logger))(handler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("http listening on %s venue=%s location=%s mode=%s realtime=%t", cfg.HTTPAddr, venueCfg.VenueName, venueCfg.LocationID, defaultMode, snapshotService.RealtimeReady())
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL          string
	HTTPAddr             string
	VenueConfigWritePath string
	SnapshotMode         string
	FeedSource           string
	GatewayBaseURL       string
	GatewayToken         string
	GatewayTimeout       time.Duration
	BreakerMaxFailures   int
	BreakerResetTimeout  time.Duration
	CarryoverCacheSize   int
	KafkaBrokers         []string
	KafkaSnapshotTopic   string
	LogSnapshots         bool
	WageAlertWebhookURL  string
	JWTSecret            string
	AuthProtectReads     bool
	CORSOrigins          []string
}

func loadConfig() config {
	return config{
		DatabaseURL:          getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		VenueConfigWritePath: getenvDefault("VENUE_CONFIG_WRITE_PATH", ""),
		SnapshotMode:         getenvDefault("SNAPSHOT_MODE", string(forecast.ModeSample)),
		FeedSource:           getenvDefault("FEED_SOURCE", ""),
		GatewayBaseURL:       getenvDefault("GATEWAY_BASE_URL", ""),
		GatewayToken:         getenvDefault("GATEWAY_TOKEN", ""),
		GatewayTimeout:       getenvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		BreakerMaxFailures:   getenvIntDefault("BREAKER_MAX_FAILURES", 5),
		BreakerResetTimeout:  getenvDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
		CarryoverCacheSize:   getenvIntDefault("CARRYOVER_CACHE_SIZE", memory.DefaultCarryoverEntries),
		KafkaBrokers:         splitList(getenvDefault("KAFKA_BROKERS", "")),
		KafkaSnapshotTopic:   getenvDefault("KAFKA_SNAPSHOT_TOPIC", publisher.DefaultTopic),
		LogSnapshots:         getenvBoolDefault("LOG_SNAPSHOTS", false),
		WageAlertWebhookURL:  getenvDefault("WAGE_ALERT_WEBHOOK_URL", ""),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		AuthProtectReads:     getenvBoolDefault("AUTH_PROTECT_READS", false),
		CORSOrigins:          splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// buildSources wires the gateway client when configured, the in-memory feed for
// FEED_SOURCE=memory, and nothing otherwise (sample mode only).
func buildSources(cfg config, logger *log.Logger) (application.Sources, error) {
	if cfg.GatewayBaseURL != "" {
		breakerCfg := breaker.Config{MaxFailures: cfg.BreakerMaxFailures, ResetTimeout: cfg.BreakerResetTimeout}
		client, err := feeds.NewClient(cfg.GatewayBaseURL, cfg.GatewayToken,
			feeds.WithHTTPClient(&http.Client{Timeout: cfg.GatewayTimeout}),
			feeds.WithBreakers(
				breaker.New("pos", breakerCfg, breaker.WithLogger(logger)),
				breaker.New("roster", breakerCfg, breaker.WithLogger(logger)),
			),
		)
		if err != nil {
			return application.Sources{}, err
		}
		return application.Sources{Payments: client, OpenOrders: client, Timesheets: client, EmployeeRates: client}, nil
	}
	if strings.EqualFold(cfg.FeedSource, "memory") {
		store := memory.NewFeedStore()
		logger.Printf("feed source: in-memory feed enabled")
		return application.Sources{Payments: store, OpenOrders: store, Timesheets: store, EmployeeRates: store}, nil
	}
	return application.Sources{}, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
