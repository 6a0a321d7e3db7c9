package analytics

import (
	"context"
	"slices"
	"strings"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var hundred = decimal.NewFromInt(100)

// accumulator holds partial sums for a set of prepared records.
// Two accumulators over disjoint records merge by plain addition.
type accumulator struct {
	total   int
	sold    int
	revenue decimal.Decimal
	profit  decimal.Decimal

	byCategory  map[string]decimal.Decimal
	byProduct   map[string]decimal.Decimal
	byBrand     map[string]decimal.Decimal
	brandProfit map[string]decimal.Decimal
	byYear      map[int]decimal.Decimal
}

func newAccumulator() *accumulator {
	return &accumulator{
		byCategory:  make(map[string]decimal.Decimal),
		byProduct:   make(map[string]decimal.Decimal),
		byBrand:     make(map[string]decimal.Decimal),
		brandProfit: make(map[string]decimal.Decimal),
		byYear:      make(map[int]decimal.Decimal),
	}
}

func groupLabel(raw string) string {
	label := strings.TrimSpace(raw)
	if label == "" {
		return domain.UnknownLabel
	}
	return label
}

func (a *accumulator) add(r domain.PreparedRecord) {
	a.total++
	if !r.IsSold {
		return
	}

	a.sold++
	a.revenue = a.revenue.Add(r.Revenue)
	a.profit = a.profit.Add(r.Profit)

	category := groupLabel(r.ProductCategory)
	product := groupLabel(r.ProductName)
	brand := groupLabel(r.ProductBrand)

	a.byCategory[category] = a.byCategory[category].Add(r.Revenue)
	a.byProduct[product] = a.byProduct[product].Add(r.Revenue)
	a.byBrand[brand] = a.byBrand[brand].Add(r.Revenue)
	a.brandProfit[brand] = a.brandProfit[brand].Add(r.Profit)

	if r.Year != nil {
		a.byYear[*r.Year] = a.byYear[*r.Year].Add(r.Revenue)
	}
}

func (a *accumulator) merge(o *accumulator) {
	a.total += o.total
	a.sold += o.sold
	a.revenue = a.revenue.Add(o.revenue)
	a.profit = a.profit.Add(o.profit)

	mergeSums(a.byCategory, o.byCategory)
	mergeSums(a.byProduct, o.byProduct)
	mergeSums(a.byBrand, o.byBrand)
	mergeSums(a.brandProfit, o.brandProfit)
	for year, v := range o.byYear {
		a.byYear[year] = a.byYear[year].Add(v)
	}
}

func mergeSums(dst, src map[string]decimal.Decimal) {
	for k, v := range src {
		dst[k] = dst[k].Add(v)
	}
}

func (a *accumulator) result(opts domain.SummaryOptions) domain.AggregateResult {
	return domain.AggregateResult{
		TotalRecordCount:  a.total,
		TotalRevenue:      a.revenue,
		TotalProfit:       a.profit,
		SoldCount:         a.sold,
		InventoryOnHand:   a.total - a.sold,
		RevenueByCategory: rankRevenue(a.byCategory, opts.TopN),
		RevenueByProduct:  rankRevenue(a.byProduct, opts.TopN),
		RevenueByBrand:    rankRevenue(a.byBrand, opts.TopN),
		RevenueByYear:     yearlyRevenue(a.byYear),
		BrandProfitMargin: profitMargins(a.byBrand, a.brandProfit),
	}
}

// rankRevenue sorts groups by revenue descending, label ascending on ties, then truncates.
func rankRevenue(groups map[string]decimal.Decimal, topN int) []domain.RankedRevenue {
	rows := make([]domain.RankedRevenue, 0, len(groups))
	for label, revenue := range groups {
		rows = append(rows, domain.RankedRevenue{Label: label, Revenue: revenue})
	}

	slices.SortFunc(rows, func(a, b domain.RankedRevenue) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})

	if topN > 0 && len(rows) > topN {
		rows = rows[:topN]
	}
	return rows
}

func yearlyRevenue(groups map[int]decimal.Decimal) []domain.YearRevenue {
	rows := make([]domain.YearRevenue, 0, len(groups))
	for year, revenue := range groups {
		rows = append(rows, domain.YearRevenue{Year: year, Revenue: revenue})
	}
	slices.SortFunc(rows, func(a, b domain.YearRevenue) int {
		return a.Year - b.Year
	})
	return rows
}

// profitMargins omits brands without positive revenue instead of dividing by zero.
func profitMargins(revenue, profit map[string]decimal.Decimal) map[string]decimal.Decimal {
	margins := make(map[string]decimal.Decimal, len(revenue))
	for brand, rev := range revenue {
		if !rev.IsPositive() {
			continue
		}
		margins[brand] = profit[brand].Mul(hundred).Div(rev).Round(2)
	}
	return margins
}

// Summarize computes the dashboard KPIs and ranked tables of the prepared records.
func Summarize(records []domain.PreparedRecord, opts domain.SummaryOptions) domain.AggregateResult {
	acc := newAccumulator()
	for _, r := range records {
		acc.add(r)
	}
	return acc.result(opts)
}

// SummarizeParallel splits records into shards, sums each shard concurrently and
// ranks the merged sums once. The result is identical to Summarize.
func SummarizeParallel(ctx context.Context, records []domain.PreparedRecord, opts domain.SummaryOptions, shards int) (domain.AggregateResult, error) {
	if shards <= 1 || len(records) < shards {
		if err := ctx.Err(); err != nil {
			return domain.AggregateResult{}, err
		}
		return Summarize(records, opts), nil
	}

	shardSize := (len(records) + shards - 1) / shards
	parts := make([]*accumulator, shards)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		start := i * shardSize
		if start >= len(records) {
			parts[i] = newAccumulator()
			continue
		}
		end := min(start+shardSize, len(records))

		g.Go(func() error {
			acc := newAccumulator()
			for _, r := range records[start:end] {
				if err := gctx.Err(); err != nil {
					return err
				}
				acc.add(r)
			}
			parts[i] = acc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.AggregateResult{}, err
	}

	total := newAccumulator()
	for _, part := range parts {
		total.merge(part)
	}
	return total.result(opts), nil
}
