package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"barberbook/internal/booking"
	"barberbook/internal/catalog"
	"barberbook/internal/handlers"
	"barberbook/internal/outbox"
	"barberbook/internal/storage"
	"barberbook/libs/auth"
	"barberbook/libs/config"
	"barberbook/libs/db"
	"barberbook/libs/httpx"
	"barberbook/libs/kafkax"
	otelx "barberbook/libs/otel"
	"barberbook/libs/runtime"
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "barberbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 10)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	store := storage.New(pool)
	if err := store.Migrate(ctx); err != nil {
		logger.Error("schema migration failed", "err", err)
		panic(err)
	}

	ledger := booking.NewLedger(store)
	cat := catalog.New(store)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	signer := auth.NewSigner(jwtSecret, config.Minutes("JWT_TTL_MINUTES", 60*time.Minute))
	authHandler := handlers.NewAuthHandler(store, signer, logger)
	barberHandler := handlers.NewBarberHandler(cat, authHandler, logger)
	bookingHandler := handlers.NewBookingHandler(ledger, authHandler, logger)

	ready := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if strings.TrimSpace(kafkaBrokers) != "" {
		ready = append(ready, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	limitPerMinute := 60
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "60")); err == nil && v > 0 {
		limitPerMinute = v
	}
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		ready = append(ready, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	bodyLimit := int64(1 << 20)
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := 10 * time.Second
	if v, err := strconv.Atoi(config.String("REQUEST_TIMEOUT_SECONDS", "10")); err == nil && v > 0 {
		requestTimeout = time.Duration(v) * time.Second
	}

	router := handlers.NewRouter(authHandler, barberHandler, bookingHandler, ready...)
	handler := httpx.Chain(router,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "*")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "*")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "true")),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
