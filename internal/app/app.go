package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	pb "github.com/godilite/sales-trends/api/v1"
	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/config"
	handler "github.com/godilite/sales-trends/internal/grpc"
	"github.com/godilite/sales-trends/internal/httpapi"
	"github.com/godilite/sales-trends/internal/repository"
	"github.com/godilite/sales-trends/internal/service"
	"github.com/godilite/sales-trends/internal/telemetry"
	"github.com/godilite/sales-trends/internal/timeseries"
	"github.com/godilite/sales-trends/internal/trend"
	"github.com/godilite/sales-trends/pkg/cache"
	dbbuilder "github.com/godilite/sales-trends/pkg/database"
	grpcsrv "github.com/godilite/sales-trends/pkg/grpc/server"
)

type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	dbPool     *sql.DB
	cache      *cache.Cache
	telemetry  *telemetry.Provider
	grpcServer *grpcsrv.Server
	httpServer *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	profile, err := aggregate.ProfileByName(cfg.SourceProfile)
	if err != nil {
		return nil, err
	}
	if _, err := timeseries.ParseFrequency(cfg.AggregationLevel); err != nil {
		return nil, err
	}

	a.telemetry, err = telemetry.New(cfg.AppEnv, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	a.dbPool, err = dbbuilder.New(
		dbbuilder.WithDriver(cfg.DBDriver),
		dbbuilder.WithDataSource(cfg.DBPath),
		dbbuilder.WithMaxOpenConns(cfg.DBMaxOpenConns),
		dbbuilder.WithMaxIdleConns(cfg.DBMaxIdleConns),
		dbbuilder.WithConnMaxLifetime(cfg.DBConnMaxLifetime),
		dbbuilder.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))

	runRepo := repository.NewRunRepository(a.dbPool)
	if err := runRepo.Migrate(ctx); err != nil {
		return nil, err
	}

	// A nil interface, not a typed nil pointer, keeps the handlers uncached.
	var cacher handler.Cacher
	if cfg.RedisAddr != "" {
		a.cache, err = cache.New(ctx,
			cache.WithAddress(cfg.RedisAddr),
			cache.WithPassword(cfg.RedisPassword),
			cache.WithDB(cfg.RedisDB),
			cache.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacher = a.cache
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("Result cache disabled")
	}

	aggregator, err := aggregate.New(profile,
		aggregate.WithChunkSize(cfg.ChunkSize),
		aggregate.WithLogger(logger),
		aggregate.WithMeter(a.telemetry.Meter(aggregate.MeterName)),
	)
	if err != nil {
		return nil, fmt.Errorf("aggregator init failed: %w", err)
	}

	analyzer, err := trend.NewAnalyzer(
		trend.WithMinPeriods(cfg.MinPeriods),
		trend.WithSignificanceLevel(cfg.SignificanceLevel),
		trend.WithLogger(logger),
		trend.WithMeter(a.telemetry.Meter(trend.MeterName)),
	)
	if err != nil {
		return nil, fmt.Errorf("analyzer init failed: %w", err)
	}

	analysisService := service.NewAnalysisService(aggregator, analyzer, runRepo, service.Defaults{
		DataDir:       cfg.DataDir,
		Level:         cfg.AggregationLevel,
		SegmentColumn: cfg.SegmentColumn,
		ValueColumn:   cfg.ValueColumn,
	}, logger)

	grpcHandlers := handler.NewGRPCHandlers(analysisService, cacher, logger, cfg.CacheTTL)

	a.grpcServer, err = grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithMeter(a.telemetry.Meter(telemetry.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	a.grpcServer.RegisterServiceWithHealth(pb.TrendAnalysis_ServiceDesc.ServiceName, func(s *grpc.Server) {
		pb.RegisterTrendAnalysisServer(s, grpcHandlers)
	})

	checks := map[string]httpapi.HealthCheck{
		"database": a.dbPool.PingContext,
	}
	if a.cache != nil {
		checks["cache"] = a.cache.Ping
	}
	router := httpapi.NewRouter(analysisService, checks, a.telemetry.Handler(), logger)
	a.httpServer = httpapi.NewServer(cfg.HTTPPort, router)

	return a, nil
}

// Run serves gRPC and HTTP until ctx is cancelled, then shuts both down
// within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application starting",
		zap.String("env", a.cfg.AppEnv),
		zap.String("profile", a.cfg.SourceProfile),
		zap.String("data_dir", a.cfg.DataDir))

	a.grpcServer.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
		}
		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	a.closeResources()

	if err != nil {
		return err
	}
	a.logger.Info("graceful shutdown completed successfully")
	return nil
}

func (a *App) closeResources() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
		a.cache = nil
	}
	if a.dbPool != nil {
		if err := a.dbPool.Close(); err != nil {
			a.logger.Error("database shutdown error", zap.Error(err))
		}
		a.dbPool = nil
	}
}
