package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/meetsched/libs/auth"
	"github.com/md-rashed-zaman/meetsched/libs/config"
	"github.com/md-rashed-zaman/meetsched/libs/db"
	"github.com/md-rashed-zaman/meetsched/libs/grpcx"
	"github.com/md-rashed-zaman/meetsched/libs/httpx"
	"github.com/md-rashed-zaman/meetsched/libs/kafkax"
	otelx "github.com/md-rashed-zaman/meetsched/libs/otel"
	"github.com/md-rashed-zaman/meetsched/libs/runtime"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/proposer"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
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
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()
	if config.Bool("DB_AUTO_MIGRATE", true) {
		if err := storage.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}
	}

	cal, tokenStore, err := newCalendar(runtime.Getenv("CALENDAR_PROVIDER", "static"), pool, logger)
	if err != nil {
		logger.Error("calendar provider init failed", "err", err)
		panic(err)
	}

	slotProposer := proposer.New(cal, proposer.Options{
		FetchTimeout:   config.Duration("CALENDAR_FETCH_TIMEOUT", 5*time.Second),
		MaxConcurrency: config.Int("PROPOSER_MAX_CONCURRENCY", 4),
		MaxResults:     config.Int("PROPOSER_MAX_RESULTS", 3),
		Logger:         logger,
		Metrics:        proposer.NewMetrics(prometheus.DefaultRegisterer),
	})

	meetingRepo := storage.NewMeetingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	// Limits apply per organizer once the bearer token is verified.
	perOrganizer := func(r *http.Request) string {
		if sub := auth.SubjectFromContext(r.Context()); sub != "" {
			return "sub:" + sub
		}
		return "ip:" + httpx.ClientIP(r)
	}
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var rateLimitMW httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:sched")).KeyBy(perOrganizer)
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).KeyBy(perOrganizer).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	verifier := auth.Verifier{
		Secret:   config.String("JWT_SECRET", ""),
		Issuer:   config.String("JWT_ISSUER", ""),
		Audience: config.String("JWT_AUDIENCE", ""),
		Leeway:   config.Duration("JWT_LEEWAY", 30*time.Second),
	}
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		verifier.JWKS = auth.NewJWKSClient(jwksURL, config.Duration("JWKS_CACHE_TTL", 5*time.Minute))
	}
	if verifier.Secret == "" && verifier.JWKS == nil {
		logger.Warn("no JWT_SECRET or JWKS_URL configured; every API request will be rejected")
	}

	schedulingHandler := handlers.NewSchedulingHandler(slotProposer, cal, meetingRepo, outboxRepo, logger)
	meetingHandler := handlers.NewMeetingHandler(meetingRepo, outboxRepo, logger)
	var tokens handlers.TokenStore
	if tokenStore != nil {
		tokens = tokenStore
	}
	credentialsHandler := handlers.NewCredentialsHandler(tokens, logger)

	api := http.NewServeMux()
	api.HandleFunc("/api/v1/meetings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			meetingHandler.Create(w, r)
			return
		}
		meetingHandler.List(w, r)
	})
	api.HandleFunc("/api/v1/meetings/get", meetingHandler.Get)
	api.HandleFunc("/api/v1/slots/propose", schedulingHandler.Propose)
	api.HandleFunc("/api/v1/availability/day", schedulingHandler.Day)
	api.HandleFunc("/api/v1/events", schedulingHandler.CreateEvent)
	api.HandleFunc("/api/v1/events/delete", schedulingHandler.DeleteEvent)
	api.HandleFunc("/api/v1/credentials", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			credentialsHandler.Delete(w, r)
			return
		}
		credentialsHandler.Put(w, r)
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", httpx.Chain(api,
		auth.RequireBearer(verifier),
		rateLimitMW,
	))

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 15*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcx.Serve(ctx, grpcSrv, health, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

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
