package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const soldTimestamp = "2022-07-14 05:04:09 UTC"

func item(name, category, brand, price, cost, soldAt string) domain.InventoryRecord {
	return domain.InventoryRecord{
		ProductName:     name,
		ProductCategory: category,
		ProductBrand:    brand,
		RetailPrice:     decimal.NewNullDecimal(decimal.RequireFromString(price)),
		Cost:            decimal.RequireFromString(cost),
		SoldAt:          soldAt,
	}
}

func mustPrepare(t *testing.T, records ...domain.InventoryRecord) []domain.PreparedRecord {
	t.Helper()
	prepared, err := Prepare(records)
	require.NoError(t, err)
	return prepared
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	msg := fmt.Sprintf("want %s, got %s", want, got.String())
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			msg += ": " + fmt.Sprintf(format, msgAndArgs[1:]...)
		}
	}
	assert.True(t, decimal.RequireFromString(want).Equal(got), msg)
}

func asJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestPrepare_DerivedFields(t *testing.T) {
	prepared := mustPrepare(t,
		item("Slim Jeans", "Jeans", "Levi's", "100", "60", soldTimestamp),
		item("Wool Socks", "Socks", "Hanes", "12.50", "4.25", ""),
	)
	require.Len(t, prepared, 2)

	sold := prepared[0]
	assert.True(t, sold.IsSold)
	require.NotNil(t, sold.Year)
	assert.Equal(t, 2022, *sold.Year)
	require.NotNil(t, sold.SoldTime)
	assert.Equal(t, 14, sold.SoldTime.Day())
	assertDecimal(t, "100", sold.Revenue)
	assertDecimal(t, "40", sold.Profit)

	unsold := prepared[1]
	assert.False(t, unsold.IsSold)
	assert.Nil(t, unsold.Year)
	assert.Nil(t, unsold.SoldTime)
	assertDecimal(t, "12.50", unsold.Revenue)
	assertDecimal(t, "8.25", unsold.Profit)
}

func TestPrepare_SoldAtLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		year int
	}{
		{raw: "2022-07-14 05:04:09 UTC", year: 2022},
		{raw: "2023-01-15 10:00:00.123456 UTC", year: 2023},
		{raw: "2021-03-01T10:00:00Z", year: 2021},
		{raw: "2020-12-31T23:30:00-05:00", year: 2021},
		{raw: "2019-06-01 08:00:00", year: 2019},
		{raw: "2024-02-29", year: 2024},
		{raw: "  2018-04-04  ", year: 2018},
		{raw: "2022-07-24 06:33:25+00", year: 2022},
		{raw: "2022-12-31 23:30:00.5-02", year: 2023},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			prepared := mustPrepare(t, item("p", "c", "b", "1", "0", tt.raw))
			require.True(t, prepared[0].IsSold)
			require.NotNil(t, prepared[0].Year)
			assert.Equal(t, tt.year, *prepared[0].Year)
		})
	}
}

// Malformed timestamps must be coerced to "unsold", never raised.
func TestPrepare_MalformedSoldAtTreatedAsAbsent(t *testing.T) {
	absent := mustPrepare(t, item("p", "c", "b", "10", "5", ""))[0]

	tests := []string{
		"not-a-date",
		"NaT",
		"nan",
		"2023-02-30",
		"14/07/2022",
		"0000-00-00 00:00:00",
		"   ",
	}

	for _, raw := range tests {
		t.Run(fmt.Sprintf("%q", raw), func(t *testing.T) {
			prepared, err := Prepare([]domain.InventoryRecord{item("p", "c", "b", "10", "5", raw)})
			require.NoError(t, err)
			got := prepared[0]

			assert.False(t, got.IsSold)
			assert.Nil(t, got.Year)
			assert.Nil(t, got.SoldTime)
			assert.Equal(t, absent.IsSold, got.IsSold)
			assertDecimal(t, absent.Revenue.String(), got.Revenue)
		})
	}
}

func TestPrepare_DoesNotMutateInput(t *testing.T) {
	records := []domain.InventoryRecord{item("p", "Jeans", "b", "10", "5", soldTimestamp)}
	before := asJSON(t, records)

	_ = mustPrepare(t, records...)

	assert.Equal(t, before, asJSON(t, records))
}

func TestPrepare_MissingRetailPrice(t *testing.T) {
	records := []domain.InventoryRecord{
		item("p", "c", "b", "10", "5", soldTimestamp),
		{ID: "42", ProductName: "no price", SoldAt: soldTimestamp},
	}

	prepared, err := Prepare(records)
	require.Error(t, err)
	assert.Nil(t, prepared)
	assert.True(t, errors.Is(err, ErrMissingRetailPrice))

	var recErr *RecordError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, 1, recErr.Index)
	assert.Equal(t, "42", recErr.ID)
	assert.Contains(t, err.Error(), "record 1")
}

func TestSummarize_SoldAndUnsold(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("a", "A", "X", "100", "60", soldTimestamp),
		item("b", "A", "X", "50", "20", ""),
	), domain.SummaryOptions{})

	assertDecimal(t, "100", result.TotalRevenue)
	assertDecimal(t, "40", result.TotalProfit)
	assert.Equal(t, 1, result.SoldCount)
	assert.Equal(t, 1, result.InventoryOnHand)
	assert.Equal(t, 2, result.TotalRecordCount)
}

func TestSummarize_GroupsSameCategory(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("a", "A", "X", "30", "10", soldTimestamp),
		item("b", "A", "Y", "70", "10", soldTimestamp),
	), domain.SummaryOptions{})

	require.Len(t, result.RevenueByCategory, 1)
	assert.Equal(t, "A", result.RevenueByCategory[0].Label)
	assertDecimal(t, "100", result.RevenueByCategory[0].Revenue)
	assert.Len(t, result.RevenueByProduct, 2)
	assert.Len(t, result.RevenueByBrand, 2)
}

func TestSummarize_EmptyInput(t *testing.T) {
	result := Summarize(nil, domain.SummaryOptions{TopN: 10})

	assert.Equal(t, 0, result.TotalRecordCount)
	assert.Equal(t, 0, result.SoldCount)
	assert.Equal(t, 0, result.InventoryOnHand)
	assert.True(t, result.TotalRevenue.IsZero())
	assert.True(t, result.TotalProfit.IsZero())
	assert.NotNil(t, result.RevenueByCategory)
	assert.Empty(t, result.RevenueByCategory)
	assert.NotNil(t, result.RevenueByProduct)
	assert.Empty(t, result.RevenueByProduct)
	assert.NotNil(t, result.RevenueByBrand)
	assert.Empty(t, result.RevenueByBrand)
	assert.NotNil(t, result.RevenueByYear)
	assert.NotNil(t, result.BrandProfitMargin)
	assert.Empty(t, result.BrandProfitMargin)
}

func TestSummarize_TieBreakAndTopN(t *testing.T) {
	prepared := mustPrepare(t,
		item("p1", "Tops", "Zeta", "50", "0", soldTimestamp),
		item("p2", "Pants", "Alpha", "50", "0", soldTimestamp),
		item("p3", "Dresses", "Mid", "80", "0", soldTimestamp),
		item("p4", "Accessories", "Beta", "50", "0", soldTimestamp),
		item("p5", "Socks", "Omega", "10", "0", soldTimestamp),
	)

	all := Summarize(prepared, domain.SummaryOptions{})
	labels := func(rows []domain.RankedRevenue) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Label)
		}
		return out
	}
	assert.Equal(t, []string{"Dresses", "Accessories", "Pants", "Tops", "Socks"}, labels(all.RevenueByCategory))
	assert.Equal(t, []string{"Mid", "Alpha", "Beta", "Zeta", "Omega"}, labels(all.RevenueByBrand))

	top := Summarize(prepared, domain.SummaryOptions{TopN: 2})
	assert.Equal(t, []string{"Dresses", "Accessories"}, labels(top.RevenueByCategory))
	assert.Equal(t, []string{"p3", "p1"}, labels(top.RevenueByProduct))
	assert.Len(t, top.BrandProfitMargin, 5, "margins cover every brand with revenue, not only the top-N")
	assertDecimal(t, "240", top.TotalRevenue)
}

func TestSummarize_RankedTablesSorted(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	records := make([]domain.InventoryRecord, 0, 300)
	for i := 0; i < 300; i++ {
		records = append(records, item(
			fmt.Sprintf("product-%d", rng.IntN(40)),
			fmt.Sprintf("category-%d", rng.IntN(8)),
			fmt.Sprintf("brand-%d", rng.IntN(12)),
			fmt.Sprintf("%d", rng.IntN(5)*10),
			"1",
			soldTimestamp,
		))
	}
	result := Summarize(mustPrepare(t, records...), domain.SummaryOptions{})

	for name, rows := range map[string][]domain.RankedRevenue{
		"category": result.RevenueByCategory,
		"product":  result.RevenueByProduct,
		"brand":    result.RevenueByBrand,
	} {
		for i := 1; i < len(rows); i++ {
			prev, cur := rows[i-1], rows[i]
			cmp := prev.Revenue.Cmp(cur.Revenue)
			assert.True(t, cmp > 0 || (cmp == 0 && prev.Label < cur.Label),
				"%s table out of order at %d: %v before %v", name, i, prev, cur)
		}
	}
}

func TestSummarize_ZeroRevenueBrandOmittedFromMargin(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("freebie", "Promo", "X", "0", "0", soldTimestamp),
		item("shirt", "Tops", "Y", "100", "75", soldTimestamp),
		item("unsold", "Tops", "Z", "100", "75", ""),
	), domain.SummaryOptions{})

	_, hasX := result.BrandProfitMargin["X"]
	assert.False(t, hasX)
	_, hasZ := result.BrandProfitMargin["Z"]
	assert.False(t, hasZ)
	assertDecimal(t, "25", result.BrandProfitMargin["Y"])
	assert.Len(t, result.BrandProfitMargin, 1)
}

func TestSummarize_MarginRounding(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("a", "c", "Thirds", "3", "2", soldTimestamp),
		item("b", "c", "Loss", "8", "9", soldTimestamp),
	), domain.SummaryOptions{})

	assertDecimal(t, "33.33", result.BrandProfitMargin["Thirds"])
	assertDecimal(t, "-12.5", result.BrandProfitMargin["Loss"])
}

func TestSummarize_MissingLabelsUseUnknownBucket(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("", "", "", "20", "5", soldTimestamp),
		item("  ", "Tops", "", "30", "5", soldTimestamp),
	), domain.SummaryOptions{})

	assertDecimal(t, "50", result.TotalRevenue)
	require.Len(t, result.RevenueByBrand, 1)
	assert.Equal(t, domain.UnknownLabel, result.RevenueByBrand[0].Label)
	assertDecimal(t, "50", result.RevenueByBrand[0].Revenue)
	require.Len(t, result.RevenueByProduct, 1)
	assert.Equal(t, domain.UnknownLabel, result.RevenueByProduct[0].Label)
	assert.Equal(t, []string{"Tops", domain.UnknownLabel}, []string{result.RevenueByCategory[0].Label, result.RevenueByCategory[1].Label})
}

func TestSummarize_RevenueByYear(t *testing.T) {
	result := Summarize(mustPrepare(t,
		item("a", "c", "b", "10", "0", "2023-03-01"),
		item("b", "c", "b", "15", "0", "2021-03-01"),
		item("c", "c", "b", "5", "0", "2023-11-11"),
		item("d", "c", "b", "99", "0", ""),
	), domain.SummaryOptions{TopN: 1})

	require.Len(t, result.RevenueByYear, 2)
	assert.Equal(t, 2021, result.RevenueByYear[0].Year)
	assertDecimal(t, "15", result.RevenueByYear[0].Revenue)
	assert.Equal(t, 2023, result.RevenueByYear[1].Year)
	assertDecimal(t, "15", result.RevenueByYear[1].Revenue)
}

func randomRecords(seed uint64, n int) []domain.InventoryRecord {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	soldAt := []string{"", soldTimestamp, "not-a-date", "2021-05-05", "2023-01-15 10:00:00.5 UTC"}
	records := make([]domain.InventoryRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, item(
			fmt.Sprintf("product-%d", rng.IntN(25)),
			fmt.Sprintf("category-%d", rng.IntN(6)),
			fmt.Sprintf("brand-%d", rng.IntN(9)),
			fmt.Sprintf("%d.%02d", rng.IntN(200), rng.IntN(100)),
			fmt.Sprintf("%d.%02d", rng.IntN(100), rng.IntN(100)),
			soldAt[rng.IntN(len(soldAt))],
		))
	}
	return records
}

func TestSummarize_Invariants(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		records := randomRecords(seed, int(seed)*13)
		prepared := mustPrepare(t, records...)
		result := Summarize(prepared, domain.SummaryOptions{})

		wantRevenue := decimal.Zero
		wantSold := 0
		for _, r := range prepared {
			if r.IsSold {
				wantRevenue = wantRevenue.Add(r.Revenue)
				wantSold++
			}
		}

		assert.Equal(t, len(records), result.InventoryOnHand+result.SoldCount, "seed %d", seed)
		assert.Equal(t, wantSold, result.SoldCount, "seed %d", seed)
		assertDecimal(t, wantRevenue.String(), result.TotalRevenue, "seed %d", seed)

		for name, rows := range map[string][]domain.RankedRevenue{
			"category": result.RevenueByCategory,
			"product":  result.RevenueByProduct,
			"brand":    result.RevenueByBrand,
		} {
			sum := decimal.Zero
			for _, row := range rows {
				sum = sum.Add(row.Revenue)
			}
			assertDecimal(t, result.TotalRevenue.String(), sum, "seed %d, %s buckets", seed, name)
		}
	}
}

func TestSummarizeParallel_MatchesSequential(t *testing.T) {
	prepared := mustPrepare(t, randomRecords(99, 1000)...)
	opts := domain.SummaryOptions{TopN: 5}
	want := asJSON(t, Summarize(prepared, opts))

	for _, shards := range []int{0, 1, 2, 3, 7, 16} {
		t.Run(fmt.Sprintf("shards=%d", shards), func(t *testing.T) {
			got, err := SummarizeParallel(context.Background(), prepared, opts, shards)
			require.NoError(t, err)
			assert.Equal(t, want, asJSON(t, got))
		})
	}
}

func TestSummarizeParallel_SmallInput(t *testing.T) {
	prepared := mustPrepare(t, item("a", "c", "b", "10", "1", soldTimestamp))

	got, err := SummarizeParallel(context.Background(), prepared, domain.SummaryOptions{}, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SoldCount)
}

func TestSummarizeParallel_Cancelled(t *testing.T) {
	prepared := mustPrepare(t, randomRecords(3, 100)...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SummarizeParallel(ctx, prepared, domain.SummaryOptions{}, 4)
	assert.ErrorIs(t, err, context.Canceled)
}
