package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	appAuth "github.com/yigit/registrar/internal/app/auth"
	appControllers "github.com/yigit/registrar/internal/app/controllers"
	appMigrations "github.com/yigit/registrar/internal/app/migrations"
	appRepos "github.com/yigit/registrar/internal/app/repositories"
	"github.com/yigit/registrar/internal/app/repositories/memory"
	appRoutes "github.com/yigit/registrar/internal/app/routes"
	appServices "github.com/yigit/registrar/internal/app/services"
	"github.com/yigit/registrar/internal/config"
	"github.com/yigit/registrar/internal/db"
	appMiddleware "github.com/yigit/registrar/internal/middleware"
	pkgAuth "github.com/yigit/registrar/internal/pkg/auth"
	"github.com/yigit/registrar/internal/pkg/logger"
	"github.com/yigit/registrar/internal/seed"
)

// ServiceName identifies the process in traces and logs
const ServiceName = "registrar"

// Store is the storage selected by configuration
type Store struct {
	appRepos.Store
	// Close releases connections; nil for the memory store.
	Close func()
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Store                  *Store
	Services               *appServices.Services
	JWTService             *pkgAuth.JWTService
	AuthzService           *appAuth.AuthorizationService
	AuthMiddleware         *appMiddleware.AuthMiddleware
	EnrollmentController   *appControllers.EnrollmentController
	PrerequisiteController *appControllers.PrerequisiteController
	HealthController       *appControllers.HealthController
	Logger                 zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := os.Getenv("REGISTRAR_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "config.yaml")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr := logger.Get().With().Str("service", ServiceName).Logger()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStore opens the configured store, migrates it and loads the demo
// catalog when asked to.
func SetupStore(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		lgr.Info().Msg("Using in-memory store")
		store := memory.NewStore()
		if cfg.Seed.Demo {
			if err := seed.Load(ctx, seed.NewMemoryLoader(store), seed.DemoCatalog(), time.Now(), lgr); err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
		}
		return &Store{Store: store}, nil

	case config.DriverPostgres:
		lgr.Info().Msg("Establishing database connection...")
		pg, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		pg.OnRetry = appServices.RecordTxRetry
		lgr.Info().Msg("Database connection successfully established.")

		if cfg.Database.AutoMigrate {
			lgr.Info().Msg("Running database migrations...")
			if err := appMigrations.NewMigrator(pg.Pool, lgr).Migrate(ctx); err != nil {
				pg.Close()
				return nil, fmt.Errorf("database migrations failed: %w", err)
			}
			lgr.Info().Msg("Database migrations successfully applied.")
		}

		if cfg.Seed.Demo {
			err := pg.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
				return seed.Load(ctx, seed.NewPostgresLoader(tx), seed.DemoCatalog(), time.Now(), lgr)
			})
			if err != nil {
				// Seeding is a convenience, a failure must not keep the API down.
				lgr.Error().Err(err).Msg("Failed to seed demo catalog, proceeding anyway")
			}
		}

		return &Store{
			Store: appRepos.NewPostgresStore(pg, cfg.Enrollment.MaxTxRetries),
			Close: pg.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// BuildDependencies initializes services, middleware and controllers.
func BuildDependencies(cfg *config.Config, store *Store, lgr zerolog.Logger) *Dependencies {
	deps := &Dependencies{Store: store, Logger: lgr}

	deps.Services = appServices.NewServices(appServices.Dependencies{
		Store: store,
		Enrollment: appServices.EnrollmentOptions{
			BulkConcurrency:       cfg.Enrollment.BulkConcurrency,
			RequireOverrideReason: cfg.Enrollment.RequireOverrideReason,
		},
		Logger: lgr,
	})

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
	})
	deps.AuthzService = appAuth.NewAuthorizationService(cfg.Auth.ManagerRoles)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.AuthzService, cfg.Auth.Enabled)
	if !cfg.Auth.Enabled {
		lgr.Warn().Msg("Authentication is disabled, every request acts as the system administrator")
	}

	deps.EnrollmentController = appControllers.NewEnrollmentController(
		deps.Services.Enrollment,
		deps.AuthzService,
		cfg.Enrollment.RequestTimeout,
	)
	deps.PrerequisiteController = appControllers.NewPrerequisiteController(deps.Services.Prerequisite)
	deps.HealthController = appControllers.NewHealthController(store)

	return deps
}

// SetupRouter builds the gin engine with middleware and routes
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(ServiceName),
		appMiddleware.RequestLogger(lgr),
	)

	appRoutes.SetupRouter(router, appRoutes.Controllers{
		Enrollment:   deps.EnrollmentController,
		Prerequisite: deps.PrerequisiteController,
		Health:       deps.HealthController,
	}, deps.AuthMiddleware)

	return router
}
