package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/analytics"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/cache"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

var ErrInvalidTopN = errors.New("top must not be negative")

// SummaryRequest selects how a summary is computed.
type SummaryRequest struct {
	TopN           int
	UseCategoryMap bool
}

func (r SummaryRequest) cacheKey() string {
	return fmt.Sprintf("top=%d|category_map=%t", r.TopN, r.UseCategoryMap)
}

type InventoryMetricsService struct {
	repo        repository.InventoryRepository
	cache       cache.InventorySummaryCache
	categoryMap analytics.CategoryGroupMap
	shards      int
}

type Option func(*InventoryMetricsService)

// WithCategoryMap sets the map applied when a request asks for grouped categories.
func WithCategoryMap(m analytics.CategoryGroupMap) Option {
	return func(s *InventoryMetricsService) { s.categoryMap = m }
}

// WithShards aggregates on n concurrent shards when n > 1.
func WithShards(n int) Option {
	return func(s *InventoryMetricsService) { s.shards = n }
}

func NewInventoryMetricsService(repo repository.InventoryRepository, cacheImpl cache.InventorySummaryCache, opts ...Option) *InventoryMetricsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopInventorySummaryCache()
	}
	s := &InventoryMetricsService{repo: repo, cache: cacheImpl, shards: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryMetricsService) GetSummary(ctx context.Context, req SummaryRequest) (*domain.AggregateResult, error) {
	if req.TopN < 0 {
		return nil, ErrInvalidTopN
	}

	key := req.cacheKey()
	if result, ok, err := s.cache.GetSummary(ctx, key); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory metrics: cache get summary failed")
	}

	start := time.Now()
	raw, err := s.repo.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	records, err := analytics.Prepare(raw)
	if err != nil {
		return nil, err
	}

	if req.UseCategoryMap && s.categoryMap.Len() > 0 {
		records = analytics.ApplyCategoryMap(records, s.categoryMap)
	}

	opts := domain.SummaryOptions{TopN: req.TopN}
	var result domain.AggregateResult
	if s.shards > 1 {
		result, err = analytics.SummarizeParallel(ctx, records, opts, s.shards)
		if err != nil {
			return nil, err
		}
	} else {
		result = analytics.Summarize(records, opts)
	}

	log.Info().
		Int("records", result.TotalRecordCount).
		Int("sold", result.SoldCount).
		Int("top", req.TopN).
		Bool("category_map", req.UseCategoryMap).
		Dur("elapsed", time.Since(start)).
		Msg("inventory summary computed")

	if err := s.cache.SetSummary(ctx, key, &result); err != nil {
		log.Warn().Err(err).Msg("inventory metrics: cache set summary failed")
	}

	return &result, nil
}

// Invalidate drops every cached summary.
func (s *InventoryMetricsService) Invalidate(ctx context.Context) error {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("invalidate inventory summary cache: %w", err)
	}
	return nil
}
