package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/repository"
	"github.com/godilite/sales-trends/internal/trend"
	dbbuilder "github.com/godilite/sales-trends/pkg/database"
)

func setupRealService(tb testing.TB) *AnalysisService {
	tb.Helper()

	db, err := dbbuilder.New(
		dbbuilder.WithDriver("sqlite3"),
		dbbuilder.WithDataSource(":memory:"),
		dbbuilder.WithMaxOpenConns(1),
	)
	if err != nil {
		tb.Fatalf("failed to create db pool via builder: %v", err)
	}
	tb.Cleanup(func() { db.Close() })

	repo := repository.NewRunRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	dir := tb.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}
	write("template_header.csv", "ngayhoadon,nhomsanpham,vung,masp,soluong,dongia,tongtien,tongtienThucdat\n")

	segments := []string{"Phones", "Laptops", "Tablets", "Audio"}
	for q := 1; q <= 4; q++ {
		var b strings.Builder
		for year := 22; year <= 24; year++ {
			for i := 0; i < 500; i++ {
				month := (q-1)*3 + i%3 + 1
				seg := segments[i%len(segments)]
				revenue := 1000 + (year-22)*200*(i%len(segments)) + (i%13)*10
				fmt.Fprintf(&b, "%d/%d/%d,%s,R%d,SP%d,%d,10,%d,%d\n",
					i%28+1, month, year, seg, i%3, i%40, i%4+1, revenue, revenue-50)
			}
		}
		write(fmt.Sprintf("quy_%d_2024.csv", q), b.String())
	}

	agg, err := aggregate.New(aggregate.SalesExtracts(), aggregate.WithChunkSize(1000))
	if err != nil {
		tb.Fatalf("aggregator: %v", err)
	}
	analyzer, err := trend.NewAnalyzer()
	if err != nil {
		tb.Fatalf("analyzer: %v", err)
	}
	return NewAnalysisService(agg, analyzer, repo, Defaults{DataDir: dir}, zap.NewNop())
}

func TestRunAnalysis_RealPipeline(t *testing.T) {
	s := setupRealService(t)
	ctx := context.Background()

	report, err := s.RunAnalysis(ctx, AnalysisRequest{})
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if len(report.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(report.Segments))
	}
	if report.Ingest.RowsRead != 6000 {
		t.Fatalf("expected 6000 rows read, got %d", report.Ingest.RowsRead)
	}

	history, err := s.SegmentHistory(ctx, "Audio", 5)
	if err != nil {
		t.Fatalf("SegmentHistory: %v", err)
	}
	if history[0].RunID != report.RunID {
		t.Fatalf("history run id %q, want %q", history[0].RunID, report.RunID)
	}
}

func BenchmarkRunAnalysis_RealPipeline(b *testing.B) {
	s := setupRealService(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.RunAnalysis(ctx, AnalysisRequest{}); err != nil {
			b.Fatal(err)
		}
	}
}
