package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/config"
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/dashboard"
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/identity"
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/navigation"
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/scananalysis"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/authprovider"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/blobstore"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/db"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/gemini"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/middleware"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/sessionstore"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/validation"
)

const version = "0.1.0"

// server holds the wired echo instance and the resources it owns.
type server struct {
	echo     *echo.Echo
	pool     *pgxpool.Pool
	redis    *redis.Client
	hub      *changefeed.Hub
	records  *records.Service
	identity *identity.Service
	analysis *scananalysis.Service
}

func (s *server) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// backends is everything the HTTP layer and the CLI share.
type backends struct {
	pool     *pgxpool.Pool
	redis    *redis.Client
	hub      *changefeed.Hub
	store    records.Store
	blobs    blobstore.BlobStore
	records  *records.Service
	identity *identity.Service
	analysis *scananalysis.Service
	resolver *dashboard.Resolver
	issuer   *auth.TokenIssuer
}

func openBackends(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backends, error) {
	b := &backends{
		hub:    changefeed.NewHub(),
		blobs:  blobstore.NewInMemoryBlobStore(),
		issuer: auth.NewTokenIssuer(cfg.SigningKey),
	}

	// Records persistence. Without a database the portal keeps records in
	// memory and dashboards answer from fixtures.
	var dashboardStore records.Store
	if cfg.PersistenceConfigured() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		b.pool = pool
		pg := records.NewPGStore(pool)
		b.store = pg
		dashboardStore = pg
		go changefeed.NewListener(pool, b.hub, logger).Run(ctx)
		logger.Info().Msg("connected to database")
	} else {
		b.store = records.NewMemoryStore(b.hub)
		logger.Warn().Msg("DATABASE_URL not set, dashboards will serve fixture data")
	}
	b.records = records.NewService(b.store, b.blobs, logger)
	b.resolver = dashboard.NewResolver(dashboardStore, logger)

	// Sessions
	var sessions sessionstore.Store = sessionstore.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := sessionstore.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.redis = client
		sessions = sessionstore.NewRedisStore(client)
	}

	// Identity
	var remote identity.RemoteIdentity
	if cfg.IdentityConfigured() {
		remote = authprovider.New(authprovider.Config{
			BaseURL: cfg.SupabaseURL,
			APIKey:  cfg.SupabaseAnonKey,
			Timeout: cfg.IdentityTimeout,
		})
	}
	var accounts *identity.DemoDirectory
	if cfg.DemoEnabled() {
		dir, err := identity.NewDemoDirectory(identity.DefaultDemoAccounts)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("demo accounts: %w", err)
		}
		accounts = dir
		logger.Warn().Int("accounts", dir.Len()).Msg("demo accounts enabled")
	}
	b.identity = identity.NewService(remote, sessions, b.issuer, accounts, identity.Config{
		Demo:       cfg.DemoEnabled(),
		SessionTTL: cfg.SessionTTL,
		Timeout:    cfg.IdentityTimeout,
		Events:     b.hub,
	}, logger)

	// Scan analysis
	var oracle scananalysis.Oracle
	if cfg.OracleConfigured() {
		client, err := gemini.New(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
			Timeout: cfg.AnalysisTimeout,
		})
		if err != nil {
			b.close()
			return nil, fmt.Errorf("analysis oracle: %w", err)
		}
		oracle = client
	}
	b.analysis = scananalysis.NewService(b.store, oracle, scananalysis.NewURLImageLoader(b.blobs, 0), logger,
		scananalysis.WithTimeout(cfg.AnalysisTimeout))

	return b, nil
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// newServer wires every portal component onto a fresh echo instance. ctx
// bounds background work such as the change listener.
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*server, error) {
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.IsProduction()}))
	if cfg.RequestTimeout > 0 {
		// Analysis gets the oracle budget plus headroom.
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout,
			middleware.WithRouteTimeout("/api/v1/radiologist/scans/:id/analyze", cfg.AnalysisTimeout+10*time.Second)))
	}
	e.Use(middleware.BodyLimit("1M", "20M"))
	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		Issuer:  b.issuer,
		Loader:  b.identity,
		Skipper: auth.AuthSkipper,
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"version":     version,
			"demoMode":    cfg.DemoEnabled(),
			"persistence": cfg.PersistenceConfigured(),
			"identity":    cfg.IdentityConfigured(),
			"analysis":    b.analysis.Configured(),
		})
	})
	e.GET("/health/db", db.HealthHandler(b.pool))

	identity.NewHandler(b.identity).RegisterRoutes(e)

	apiV1 := e.Group("/api/v1")
	ws := e.Group("/ws")

	navigation.NewHandler().RegisterRoutes(apiV1)
	records.NewHandler(b.records).RegisterRoutes(apiV1)
	dashboard.NewHandler(b.resolver, b.hub, b.identity, cfg.CORSOrigins, logger).RegisterRoutes(apiV1, ws)
	scananalysis.NewHandler(b.analysis).RegisterRoutes(apiV1)
	blobstore.NewBlobHandler(b.blobs).RegisterRoutes(apiV1.Group("", auth.RequireSession()))

	return &server{
		echo:     e,
		pool:     b.pool,
		redis:    b.redis,
		hub:      b.hub,
		records:  b.records,
		identity: b.identity,
		analysis: b.analysis,
	}, nil
}
