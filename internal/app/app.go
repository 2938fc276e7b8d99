package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	rediscache "github.com/Fleezyflo/moh-time-os-sub004/internal/clients/redis"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/db"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/blobstore"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/telemetry"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services

	cache             rediscache.Cache
	telemetryShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	telemetryShutdown, err := telemetry.Setup("time-os-pipeline")
	if err != nil {
		log.Warn("Telemetry init failed", "error", err)
	}

	reposet := wireRepos(theDB, log)

	blobs, err := blobstore.New(log, reposet.Blob, cfg.BlobKey)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	cache, err := rediscache.NewCache(log)
	if err != nil {
		log.Warn("Redis cache unavailable, brief reads go straight to the database", "error", err)
		cache = nil
	}

	serviceset := wireServices(theDB, log, cfg, reposet, blobs, cache)

	ctx := context.Background()
	if err := serviceset.Policy.SeedDefaults(ctx); err != nil {
		log.Sync()
		return nil, fmt.Errorf("seed access policy: %w", err)
	}
	if n, err := serviceset.Signal.LoadDefinitions(ctx, cfg.SignalDefinitionsPath); err != nil {
		log.Warn("Could not load signal definitions", "path", cfg.SignalDefinitionsPath, "error", err)
	} else {
		log.Info("Signal definitions loaded", "count", n)
	}
	if n, err := serviceset.Policy.LoadRetentionRules(ctx, cfg.RetentionRulesPath); err != nil {
		log.Warn("Could not load retention rules", "path", cfg.RetentionRulesPath, "error", err)
	} else {
		log.Info("Retention rules loaded", "count", n)
	}

	handlerset := wireHandlers(log, serviceset)
	mw := wireMiddleware(log, cfg, serviceset)
	router := wireRouter(log, cfg, handlerset, mw)

	return &App{
		Log:               log,
		DB:                theDB,
		Router:            router,
		Cfg:               cfg,
		Repos:             reposet,
		Services:          serviceset,
		cache:             cache,
		telemetryShutdown: telemetryShutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.telemetryShutdown != nil {
		_ = a.telemetryShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
