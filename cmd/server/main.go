// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/analytics"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/api"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/api/middleware"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/cache"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/config"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/scheduler"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/service"
	"github.com/andresuchdata/inventory-metrics/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	decimal.MarshalJSONWithoutQuotes = true

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	repo, closeRepo, err := newInventoryRepository(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize inventory source")
	}
	defer closeRepo()

	groups, err := config.LoadCategoryGroups(cfg.Inventory.CategoryGroupsFile)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load category groups")
	}
	categoryMap, err := analytics.CategoryGroupMapFromGroups(groups)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid category groups")
	}

	summaryCache, err := cache.NewInventorySummaryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Summary cache unavailable, continuing without it")
		summaryCache = cache.NewNoopInventorySummaryCache()
	}

	metricsService := service.NewInventoryMetricsService(repo, summaryCache,
		service.WithCategoryMap(categoryMap),
		service.WithShards(cfg.Inventory.Shards),
	)

	services := &api.Services{
		InventoryMetricsService: metricsService,
		DefaultTopN:             cfg.Inventory.TopN,
	}
	if cfg.Server.RateLimitEnabled {
		services.RateLimiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	router := api.NewRouter(services, cfg.Server.AllowedOrigins)

	warmRequests := []service.SummaryRequest{{TopN: cfg.Inventory.TopN}}
	if categoryMap.Len() > 0 {
		warmRequests = append(warmRequests, service.SummaryRequest{TopN: cfg.Inventory.TopN, UseCategoryMap: true})
	}

	warmCtx, stopWarmer := context.WithCancel(context.Background())
	defer stopWarmer()
	warmer := scheduler.NewCacheWarmer(metricsService, scheduler.CacheWarmerConfig{
		Enabled:      cfg.Cache.Enabled && cfg.Cache.WarmEnabled,
		CronSchedule: cfg.Cache.WarmCron,
		Requests:     warmRequests,
	})
	if err := warmer.Start(warmCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start summary cache warmer")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("source", cfg.Inventory.Source).
			Int("category_groups", categoryMap.Len()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")
	stopWarmer()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func newInventoryRepository(cfg *config.Config) (repository.InventoryRepository, func(), error) {
	if cfg.Inventory.Source != config.SourcePostgres {
		return repository.NewCSVInventoryRepository(cfg.Inventory.CSVPath), func() {}, nil
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo, err := postgres.NewInventoryRepository(db, cfg.Inventory.Table)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, func() { _ = db.Close() }, nil
}
