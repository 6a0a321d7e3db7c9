package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/inventory-metrics/backend-go/internal/analytics"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/config"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/domain"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/inventory-metrics/backend-go/internal/service"
	"github.com/andresuchdata/inventory-metrics/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// newApp prints reports on out; logs and usage errors go to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "report",
		Usage:     "Compute inventory and sales metrics from a record source",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.ConfigureOutput(c.App.ErrWriter, c.String("log-level"), "console")
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "Print the aggregate summary",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Usage:   "Record source: csv or postgres",
						Value:   config.SourceCSV,
						EnvVars: []string{"INVENTORY_SOURCE"},
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Inventory CSV file",
						EnvVars: []string{"INVENTORY_CSV_PATH"},
					},
					&cli.StringFlag{
						Name:    "table",
						Usage:   "Inventory table when reading from postgres",
						Value:   "inventory_items",
						EnvVars: []string{"INVENTORY_TABLE"},
					},
					&cli.IntFlag{
						Name:    "top",
						Usage:   "Rows per ranked table (0 = all)",
						Value:   10,
						EnvVars: []string{"SUMMARY_TOP_N"},
					},
					&cli.StringFlag{
						Name:    "category-groups",
						Usage:   "YAML/JSON file with category_groups",
						EnvVars: []string{"CATEGORY_GROUPS_FILE"},
					},
					&cli.IntFlag{
						Name:    "shards",
						Usage:   "Concurrent aggregation shards",
						Value:   1,
						EnvVars: []string{"SUMMARY_SHARDS"},
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: json or text",
						Value: formatJSON,
					},
				},
				Action: runSummary,
			},
		},
	}
}

func runSummary(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != formatJSON && format != formatText {
		return fmt.Errorf("unknown format %q", format)
	}
	if c.Int("top") < 0 {
		return fmt.Errorf("--top must not be negative")
	}
	if c.Int("shards") < 1 {
		return fmt.Errorf("--shards must be at least 1")
	}

	repo, closeRepo, err := openSource(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := []service.Option{service.WithShards(c.Int("shards"))}
	useMap := false
	if path := c.String("category-groups"); path != "" {
		groups, err := config.LoadCategoryGroups(path)
		if err != nil {
			return err
		}
		m, err := analytics.CategoryGroupMapFromGroups(groups)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithCategoryMap(m))
		useMap = true
	}

	svc := service.NewInventoryMetricsService(repo, nil, opts...)
	result, err := svc.GetSummary(c.Context, service.SummaryRequest{TopN: c.Int("top"), UseCategoryMap: useMap})
	if err != nil {
		return err
	}

	if format == formatText {
		return writeText(c.App.Writer, result)
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func openSource(c *cli.Context) (repository.InventoryRepository, func(), error) {
	switch c.String("source") {
	case config.SourceCSV:
		if c.String("file") == "" {
			return nil, nil, fmt.Errorf("--file is required for the csv source")
		}
		return repository.NewCSVInventoryRepository(c.String("file")), func() {}, nil
	case config.SourcePostgres:
		cfg := config.Load()
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo, err := postgres.NewInventoryRepository(db, c.String("table"))
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", c.String("source"))
	}
}

func writeText(out io.Writer, r *domain.AggregateResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "records\t%d\n", r.TotalRecordCount)
	fmt.Fprintf(tw, "sold\t%d\n", r.SoldCount)
	fmt.Fprintf(tw, "on hand\t%d\n", r.InventoryOnHand)
	fmt.Fprintf(tw, "revenue\t%s\n", r.TotalRevenue.StringFixed(2))
	fmt.Fprintf(tw, "profit\t%s\n", r.TotalProfit.StringFixed(2))

	writeRanked(tw, "category", r.RevenueByCategory)
	writeRanked(tw, "product", r.RevenueByProduct)
	writeRanked(tw, "brand", r.RevenueByBrand)

	fmt.Fprintf(tw, "\nyear\trevenue\n")
	for _, y := range r.RevenueByYear {
		fmt.Fprintf(tw, "%d\t%s\n", y.Year, y.Revenue.StringFixed(2))
	}

	fmt.Fprintf(tw, "\nbrand\tmargin %%\n")
	for _, row := range r.RevenueByBrand {
		if m, ok := r.BrandProfitMargin[row.Label]; ok {
			fmt.Fprintf(tw, "%s\t%s\n", row.Label, m.StringFixed(2))
		}
	}

	return tw.Flush()
}

func writeRanked(w io.Writer, title string, rows []domain.RankedRevenue) {
	fmt.Fprintf(w, "\n%s\trevenue\n", title)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", truncate(row.Label, 48), row.Revenue.StringFixed(2))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
