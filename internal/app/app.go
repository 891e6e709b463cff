package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	httpapi "github.com/yungbote/campuspulse-backend/internal/http"
	httpH "github.com/yungbote/campuspulse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campuspulse-backend/internal/http/middleware"
	"github.com/yungbote/campuspulse-backend/internal/observability"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
	"github.com/yungbote/campuspulse-backend/internal/services"
)

type Services struct {
	Auth          services.AuthService
	Classifier    services.ClassificationService
	Aggregation   services.AggregationService
	Sync          services.SyncService
	CampusReports services.CampusReportService
	Student       services.StudentService
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Storage  Storage
	Repos    *repos.Set
	Services Services
	Router   *gin.Engine

	shutdownOtel func(context.Context) error
}

// New builds the app from the environment.
func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envLogMode())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := NewWithConfig(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	storage, err := wireStorage(ctx, log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		return nil, err
	}
	gen, err := wireGenerator(ctx, log, cfg.Analysis)
	if err != nil {
		_ = storage.Close()
		_ = shutdownOtel(context.Background())
		return nil, err
	}

	log.Info("Wiring repos...")
	reposet := repos.NewSet(storage.Store, storage.Locker, log)

	log.Info("Wiring services...")
	authSvc, err := services.NewAuthService(log, cfg.Credentials, cfg.JWTSecretKey, cfg.AccessTokenTTL)
	if err != nil {
		_ = storage.Close()
		_ = shutdownOtel(context.Background())
		return nil, fmt.Errorf("init auth: %w", err)
	}
	classifier := services.NewClassificationService(log, gen, cfg.Analysis.Timeout)
	aggregation := services.NewAggregationService(log, reposet.Shared, reposet.Reports, reposet.Locker, cfg.Scale, time.Now)
	syncer := services.NewSyncService(log, reposet.Shared, reposet.Locker, aggregation)
	campus := services.NewCampusReportService(log, aggregation, gen, cfg.Analysis.Timeout)
	student := services.NewStudentService(
		log,
		reposet.History,
		classifier,
		syncer,
		authSvc,
		services.NewSessionRegistry(cfg.SessionIdleTTL),
		cfg.Scale,
		cfg.StudentKeySalt,
	)
	svcs := Services{
		Auth:          authSvc,
		Classifier:    classifier,
		Aggregation:   aggregation,
		Sync:          syncer,
		CampusReports: campus,
		Student:       student,
	}

	log.Info("Wiring router...")
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.AllowedOrigins,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, authSvc),
		AuthHandler:    httpH.NewAuthHandler(authSvc, student),
		StudentHandler: httpH.NewStudentHandler(log, student),
		CampusHandler:  httpH.NewCampusHandler(aggregation, campus),
		HealthHandler:  httpH.NewHealthHandler(storage.Store),
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Storage:      storage,
		Repos:        reposet,
		Services:     svcs,
		Router:       router,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled, then flushes traces.
func (a *App) Serve(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	srv := httpapi.NewServer(a.Router, ":"+a.Cfg.Port)
	g.Go(func() error {
		a.Log.Info("Server listening", "port", a.Cfg.Port)
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return a.shutdownOtel(flushCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownOtel != nil {
		_ = a.shutdownOtel(context.Background())
	}
	if err := a.Storage.Close(); err != nil {
		a.Log.Warn("storage close failed", "error", err)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
