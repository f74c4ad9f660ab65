package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"legalreview-backend/internal/analyses"
	"legalreview-backend/internal/doccontext"
	"legalreview-backend/internal/documents"
	"legalreview-backend/internal/events"
	"legalreview-backend/internal/fixes"
	"legalreview-backend/internal/llm"
	"legalreview-backend/internal/llm/offline"
	openai "legalreview-backend/internal/llm/openai"
	"legalreview-backend/internal/services/health"
	"legalreview-backend/internal/sessions"
	"legalreview-backend/internal/shared/config"
	"legalreview-backend/internal/shared/server"
	"legalreview-backend/internal/shared/server/middleware"
	"legalreview-backend/internal/shared/storage/db"
	"legalreview-backend/internal/shared/storage/object"
	localstore "legalreview-backend/internal/shared/storage/object/local"
	s3store "legalreview-backend/internal/shared/storage/object/s3"
	"legalreview-backend/internal/shared/telemetry"
	"legalreview-backend/internal/uploads"
	"legalreview-backend/internal/usage"
)

const (
	janitorInterval = time.Minute
	limiterIdle     = 10 * time.Minute
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	DB             *sql.DB
	Store          object.Store
	Events         events.Publisher
	Sessions       *sessions.Service
	SessionRepo    *sessions.MemoryRepo
	UsageService   *usage.Service
	ReviewHandler  *sessions.Handler
	UsageHandler   *usage.Handler
	UploadHandler  *uploads.Handler
	RateLimiter    *middleware.RateLimiter
	AnalysisEngine analyses.Provider
}

// providers groups the three model-backed roles.
type providers struct {
	analyzer  analyses.Provider
	fixer     fixes.Provider
	assistant sessions.Assistant
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := buildEvents(ctx, cfg)
	if err != nil {
		return nil, err
	}

	prov, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}

	resolver := doccontext.Resolver{}
	if path := strings.TrimSpace(cfg.ContextRulesFile); path != "" {
		resolver, err = doccontext.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load context rules: %w", err)
		}
	}

	policy := usage.DefaultPolicy()
	if cfg.UsageLimit > 0 {
		policy.Limit = cfg.UsageLimit
	}
	var usageSvc *usage.Service
	if sqlDB != nil {
		usageSvc = usage.NewPostgresService(usage.NewPGStore(sqlDB, policy))
	} else {
		usageSvc = usage.NewService(policy)
	}

	repo := sessions.NewMemoryRepo()
	svc := &sessions.Service{
		Documents: &documents.Service{Store: store, Archive: cfg.ArchiveUploads},
		Resolver:  resolver,
		Orchestrator: &analyses.Orchestrator{
			Provider: prov.analyzer,
			Timeout:  cfg.AnalysisTimeout,
		},
		Fixer:      prov.fixer,
		Assistant:  prov.assistant,
		Usage:      usageSvc,
		Repo:       repo,
		Events:     publisher,
		FixTimeout: cfg.FixTimeout,
		TTL:        cfg.SessionTTL,
	}

	app := &App{
		Config:         cfg,
		DB:             sqlDB,
		Store:          store,
		Events:         publisher,
		Sessions:       svc,
		SessionRepo:    repo,
		UsageService:   usageSvc,
		ReviewHandler:  sessions.NewHandler(svc),
		UsageHandler:   usage.NewHandler(usageSvc),
		RateLimiter:    middleware.NewRateLimiter(nil),
		AnalysisEngine: prov.analyzer,
	}
	if cfg.ObjectStoreType == "s3" {
		app.UploadHandler, err = uploads.NewHandler(ctx, s3Connection(cfg), cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		ReviewHandler: app.ReviewHandler,
		UsageHandler:  app.UsageHandler,
		UploadHandler: app.UploadHandler,
		Health:        health.NewService(sqlDB, cfg.LLMProvider),
		RateLimiter:   app.RateLimiter,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"object_store": cfg.ObjectStoreType,
		"database":     sqlDB != nil,
		"events_queue": cfg.EventsQueueURL != "",
	})
	return app, nil
}

// Start runs background maintenance until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.janitor(ctx, janitorInterval)
}

// janitor evicts expired review sessions and idle rate limit buckets.
func (a *App) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep()
		}
	}
}

func (a *App) sweep() {
	evicted := a.SessionRepo.Sweep()
	buckets := a.RateLimiter.Prune(limiterIdle)
	if evicted > 0 || buckets > 0 {
		telemetry.Info("janitor.sweep", map[string]any{
			"sessions_evicted": evicted,
			"buckets_pruned":   buckets,
		})
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			telemetry.Info("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RoleAPI)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3Connection(cfg), cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func s3Connection(cfg config.Config) s3store.Connection {
	return s3store.Connection{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretKey,
	}
}

func buildEvents(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if strings.TrimSpace(cfg.EventsQueueURL) == "" {
		return events.LogPublisher{}, nil
	}
	queue, err := events.NewSQSPublisher(ctx, cfg.EventsQueueURL, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return events.Multi{events.LogPublisher{}, queue}, nil
}

func buildProviders(cfg config.Config) (providers, error) {
	if cfg.LLMProvider != "openai" {
		p := offline.New()
		return providers{analyzer: p, fixer: p, assistant: p}, nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return providers{}, err
	}
	c := llm.WithRetry(client)
	return providers{
		analyzer:  llm.Analyzer{Client: c},
		fixer:     llm.Fixer{Client: c},
		assistant: llm.Assistant{Client: c},
	}, nil
}
