// Command trendctl runs the trend analysis once over a directory of sales
// extracts and prints the result, without the servers or run history.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/timeseries"
	"github.com/godilite/sales-trends/internal/trend"
)

type options struct {
	dir          string
	profile      string
	level        string
	segment      string
	value        string
	chunk        int
	minPeriods   int
	significance float64
	format       string
	quiet        bool
	verbose      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("trendctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.dir, "dir", "./data/sales", "directory holding the source extracts")
	fs.StringVar(&o.profile, "profile", "sales_extracts", "source profile (sales_extracts|pre_aggregated)")
	fs.StringVar(&o.level, "level", string(timeseries.Quarterly), "aggregation level (monthly|quarterly)")
	fs.StringVar(&o.segment, "segment", aggregate.ColumnSegment, "column that names each series")
	fs.StringVar(&o.value, "value", aggregate.ColumnTotalRevenue, "measure column to analyze")
	fs.IntVar(&o.chunk, "chunk", aggregate.DefaultChunkSize, "rows per streamed chunk")
	fs.IntVar(&o.minPeriods, "min-periods", trend.DefaultMinPeriods, "minimum periods for a segment to be analyzed")
	fs.Float64Var(&o.significance, "significance", trend.DefaultSignificanceLevel, "linear-regression slope test level")
	fs.StringVar(&o.format, "format", "markdown", "output format (markdown|json)")
	fs.BoolVar(&o.quiet, "quiet", false, "hide the progress bar")
	fs.BoolVar(&o.verbose, "v", false, "log pipeline events to stderr")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.format != "markdown" && o.format != "json" {
		return o, fmt.Errorf("unsupported format %q", o.format)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync()
	}

	level, err := timeseries.ParseFrequency(o.level)
	if err != nil {
		return err
	}
	profile, err := aggregate.ProfileByName(o.profile)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	agg, err := aggregate.New(profile,
		aggregate.WithChunkSize(o.chunk),
		aggregate.WithLogger(logger),
		aggregate.WithFileHook(func(stats aggregate.FileStats, err error) {
			if bar != nil {
				_ = bar.Add(1)
			}
		}),
	)
	if err != nil {
		return err
	}

	if !o.quiet {
		files, err := agg.Files(o.dir)
		if err != nil {
			return err
		}
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("aggregating"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	table, err := agg.Aggregate(ctx, o.dir, level)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	for _, s := range table.Skipped {
		fmt.Fprintf(stderr, "skipped %s: %s\n", s.File, s.Error)
	}

	analyzer, err := trend.NewAnalyzer(
		trend.WithMinPeriods(o.minPeriods),
		trend.WithSignificanceLevel(o.significance),
		trend.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	series, err := table.ExtractSeries(o.segment, o.value, analyzer.MinPeriods())
	if err != nil {
		return err
	}
	results := analyzer.AnalyzeSegments(ctx, series)

	if o.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	_, err = io.WriteString(stdout, trend.FormatMarkdown(results))
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "trendctl: %v\n", err)
		os.Exit(1)
	}
}
