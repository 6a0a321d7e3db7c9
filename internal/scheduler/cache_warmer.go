package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/service"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// SummaryService is the part of the metrics service the warmer drives.
type SummaryService interface {
	GetSummary(ctx context.Context, req service.SummaryRequest) (*domain.AggregateResult, error)
	Invalidate(ctx context.Context) error
}

type CacheWarmerConfig struct {
	Enabled      bool
	CronSchedule string
	Requests     []service.SummaryRequest
	Timeout      time.Duration
}

// CacheWarmer periodically drops cached summaries and recomputes the configured requests.
type CacheWarmer struct {
	scheduler *gocron.Scheduler
	service   SummaryService
	config    CacheWarmerConfig

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func NewCacheWarmer(svc SummaryService, cfg CacheWarmerConfig) *CacheWarmer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return &CacheWarmer{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   svc,
		config:    cfg,
	}
}

func (w *CacheWarmer) Start(ctx context.Context) error {
	if !w.config.Enabled {
		log.Info().Msg("summary cache warmer disabled")
		return nil
	}

	_, err := w.scheduler.Cron(w.config.CronSchedule).Do(func() {
		if err := w.Warm(ctx); err != nil {
			log.Error().Err(err).Msg("summary cache warm failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule summary cache warmer: %w", err)
	}

	log.Info().Str("cron", w.config.CronSchedule).Int("requests", len(w.config.Requests)).Msg("summary cache warmer started")
	w.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		w.scheduler.Stop()
	}()

	return nil
}

// Warm runs one refresh. Overlapping calls return immediately.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		log.Warn().Msg("summary cache warm already running")
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.lastRun = time.Now()
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	if err := w.service.Invalidate(ctx); err != nil {
		return err
	}
	for _, req := range w.config.Requests {
		if _, err := w.service.GetSummary(ctx, req); err != nil {
			return fmt.Errorf("warm top=%d category_map=%t: %w", req.TopN, req.UseCategoryMap, err)
		}
	}
	return nil
}

func (w *CacheWarmer) LastRun() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastRun
}
