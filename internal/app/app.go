package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/thanhvinh2808/SoulDiary-FE/internal/auth"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/config"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/event"
	handler "github.com/thanhvinh2808/SoulDiary-FE/internal/handler/http"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/identity"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/repository"
	mongorepo "github.com/thanhvinh2808/SoulDiary-FE/internal/repository/mongo"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/repository/postgres"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/service"
	"github.com/thanhvinh2808/SoulDiary-FE/internal/throttle"
	"github.com/thanhvinh2808/SoulDiary-FE/migrations"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/database"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/health"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/httpclient"
	pkgkafka "github.com/thanhvinh2808/SoulDiary-FE/pkg/kafka"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/middleware"
	"github.com/thanhvinh2808/SoulDiary-FE/pkg/tracing"
)

// App wires together all dependencies and runs the SoulDiary API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopLimiter    context.CancelFunc
}

type stores struct {
	users   repository.UserRepository
	diaries repository.DiaryRepository
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Storage backend.
	st, err := a.openStorage(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Redis backs the login throttle. Without it logins are not throttled.
	var loginThrottle service.LoginThrottle = throttle.Noop{}
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, login throttling disabled",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	} else {
		a.redisClient = redisClient
		loginThrottle = throttle.NewLoginThrottle(redisClient, cfg.LoginMaxAttempts, cfg.LoginLockout)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
	}

	// Kafka producer for user lifecycle events.
	var events service.EventPublisher = event.Noop{}
	if cfg.KafkaEnabled {
		producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		a.producer = producer
		events = event.NewProducer(producer, logger)
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Identity providers.
	google, facebook, err := newProviders(ctx, cfg, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Build the dependency graph.
	accessSecret, refreshSecret := jwtSecrets(cfg, logger)
	tokens := auth.NewTokenManager(accessSecret, refreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	authService := service.NewAuthService(st.users, tokens, loginThrottle, events, logger, google, facebook)
	diaryService := service.NewDiaryService(st.diaries, logger)

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	a.stopLimiter = stopLimiter
	authLimiter := middleware.NewRateLimiter(limiterCtx, cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, 10*time.Minute, logger)
	if err := authLimiter.TrustProxies(cfg.TrustedProxies); err != nil {
		a.closeResources()
		return nil, fmt.Errorf("configure rate limiter: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	// HTTP router.
	router := handler.NewRouter(authService, diaryService, healthHandler, logger, handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		CORS:        cors,
		Cookies: handler.CookieConfig{
			Secure: cfg.IsProduction(),
			MaxAge: cfg.CookieMaxAge(),
		},
		AuthLimiter: authLimiter,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStorage connects the configured backend, prepares its schema and
// registers its readiness check.
func (a *App) openStorage(ctx context.Context, healthHandler *health.Handler) (*stores, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StorageDriver {
	case config.StorageMongo:
		client, db, err := database.NewMongoDatabase(ctx, database.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: 10 * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		a.mongoClient = client
		logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDatabase))

		users := mongorepo.NewUserRepository(db)
		diaries := mongorepo.NewDiaryRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		if err := diaries.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure diary indexes: %w", err)
		}

		healthHandler.RegisterCritical("mongo", func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})
		return &stores{users: users, diaries: diaries}, nil

	default:
		pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
			URL:             cfg.DatabaseURL,
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL")

		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}

		// Run database migrations.
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
			database.SetSlowQueryLogging(threshold, logger)
		}

		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return &stores{
			users:   postgres.NewUserRepository(pool),
			diaries: postgres.NewDiaryRepository(pool),
		}, nil
	}
}

// newProviders builds the Google and Facebook verifiers, each behind its own
// circuit breaker.
func newProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*identity.GoogleProvider, *identity.FacebookProvider, error) {
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.ProviderTimeout

	googleClient := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("google"), logger)
	facebookClient := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("facebook"), logger)

	validator, err := identity.NewIDTokenValidator(ctx, googleClient.HTTPClient())
	if err != nil {
		return nil, nil, fmt.Errorf("create google id token validator: %w", err)
	}
	if len(cfg.GoogleClientIDs) == 0 {
		logger.Warn("no Google client ids configured, Google ID tokens will be rejected")
	}

	google := identity.NewGoogleProvider(validator, googleClient, identity.GoogleConfig{
		ClientIDs:   cfg.GoogleClientIDs,
		UserInfoURL: cfg.GoogleUserInfoURL,
	})
	facebook := identity.NewFacebookProvider(facebookClient, cfg.FacebookGraphURL)
	return google, facebook, nil
}

// jwtSecrets returns the configured secrets. Missing secrets are only
// possible in development, where random per-process secrets are used.
func jwtSecrets(cfg *config.Config, logger *slog.Logger) (string, string) {
	access, refresh := cfg.JWTAccessSecret, cfg.JWTRefreshSecret
	if access == "" {
		access = randomSecret()
		logger.Warn("JWT_ACCESS_SECRET not set, using a random secret for this process")
	}
	if refresh == "" {
		refresh = randomSecret()
		logger.Warn("JWT_REFRESH_SECRET not set, using a random secret for this process")
	}
	return access, refresh
}

func randomSecret() string {
	b := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("storage", a.cfg.StorageDriver),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, then the data stores.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything except the HTTP server. It tolerates a
// partially initialized App.
func (a *App) closeResources() error {
	var errs []error

	if a.stopLimiter != nil {
		a.stopLimiter()
	}

	// Flush spans after the HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.mongoClient != nil {
		mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer mongoCancel()
		if err := a.mongoClient.Disconnect(mongoCtx); err != nil {
			a.logger.Error("mongo disconnect error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
