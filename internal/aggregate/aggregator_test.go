package aggregate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/godilite/sales-trends/internal/timeseries"
)

const templateHeader = "ngayhoadon,nhomsanpham,vung,masp,soluong,dongia,tongtien,tongtienThucdat\n"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// salesRows renders n deterministic rows spread over eight quarters of 2023-2024.
func salesRows(n, offset int) string {
	segments := []string{"A", "B", "C"}
	regions := []string{"North", "South"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		k := i + offset
		month := k%24%12 + 1
		year := 23 + k%24/12
		day := k%27 + 1
		fmt.Fprintf(&b, "%d/%d/%02d,%s,%s,SP%03d,%d,10,%d,%d\n",
			day, month, year,
			segments[k%len(segments)],
			regions[k%len(regions)],
			k%17,
			k%5+1,
			(k%9+1)*100,
			(k%7+1)*90,
		)
	}
	return b.String()
}

func newSalesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "template_header.csv", templateHeader)
	writeFile(t, dir, "quy_1_2024.csv", salesRows(400, 0))
	writeFile(t, dir, "quy_2_2024.csv", salesRows(250, 1000))
	return dir
}

type totals struct {
	quantity, revenue, actual float64
	products                  int
}

func byKey(rows []AggregateRow) map[string]totals {
	out := make(map[string]totals, len(rows))
	for _, r := range rows {
		key := fmt.Sprintf("%s|%s|%s|%s", r.Provenance.SourceFile, r.Label, r.Segment, dimensionString(r.Dimensions))
		out[key] = totals{r.TotalQuantity, r.TotalRevenue, r.TotalActualRevenue, r.UniqueProducts}
	}
	return out
}

func TestAggregate_ChunkSizeIdempotent(t *testing.T) {
	dir := newSalesDir(t)

	for _, level := range []timeseries.Frequency{timeseries.Monthly, timeseries.Quarterly} {
		t.Run(string(level), func(t *testing.T) {
			small, err := New(SalesExtracts(), WithChunkSize(7))
			require.NoError(t, err)
			large, err := New(SalesExtracts(), WithChunkSize(100000))
			require.NoError(t, err)

			a, err := small.Aggregate(context.Background(), dir, level)
			require.NoError(t, err)
			b, err := large.Aggregate(context.Background(), dir, level)
			require.NoError(t, err)

			assert.Equal(t, byKey(b.Rows), byKey(a.Rows))
			assert.Greater(t, a.Files[0].Chunks, b.Files[0].Chunks)
			assert.Equal(t, 1, b.Files[0].Chunks)
		})
	}
}

func TestAggregate_SalesExtracts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "template_header.csv", templateHeader)
	writeFile(t, dir, "quy_1_2024.csv", ""+
		"5/1/24,A,North,SP1,2,10,200,180\n"+
		"20/2/24,A,North,SP2,1,10,100,90\n"+
		"20/2/24,A,North,SP1,abc,10,100,90\n"+
		"3/4/24,B,South,SP3,4,10,400,360\n"+
		"not a date,B,South,SP3,4,10,400,360\n")

	agg, err := New(SalesExtracts(), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	q1 := res.Rows[0]
	assert.Equal(t, "2024Q1", q1.Label)
	assert.Equal(t, 1, q1.Quarter)
	assert.Equal(t, 2024, q1.Year)
	assert.Equal(t, "A", q1.Segment)
	assert.Equal(t, map[string]string{"vung": "North"}, q1.Dimensions)
	assert.Equal(t, 3.0, q1.TotalQuantity)
	assert.Equal(t, 400.0, q1.TotalRevenue)
	assert.Equal(t, 360.0, q1.TotalActualRevenue)
	assert.Equal(t, 2, q1.UniqueProducts)
	assert.Equal(t, "quy_1_2024.csv", q1.Provenance.SourceFile)
	require.NotNil(t, q1.Provenance.FileQuarter)
	assert.Equal(t, 1, *q1.Provenance.FileQuarter)
	assert.Equal(t, 2024, *q1.Provenance.FileYear)

	assert.Equal(t, "2024Q2", res.Rows[1].Label)
	assert.Equal(t, "B", res.Rows[1].Segment)

	require.Len(t, res.Files, 1)
	stats := res.Files[0]
	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsDropped)
	assert.Equal(t, 1, stats.ValuesCoerced)
	assert.Equal(t, dateModeStrict, stats.DateMode)
	assert.Equal(t, 2, res.Periods())
}

func TestAggregate_MonthlyLevel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "template_header.csv", templateHeader)
	writeFile(t, dir, "quy_1_2024.csv", ""+
		"5/1/24,A,North,SP1,2,10,200,180\n"+
		"20/2/24,A,North,SP2,1,10,100,90\n")

	agg, err := New(SalesExtracts())
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), dir, timeseries.Monthly)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "2024-01", res.Rows[0].Label)
	assert.Equal(t, 1, res.Rows[0].Month)
	assert.Equal(t, 1, res.Rows[0].Quarter)
	assert.Equal(t, "2024-02", res.Rows[1].Label)
}

func TestAggregate_PermissiveDates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "template_header.csv", templateHeader)
	writeFile(t, dir, "quy_1_2024.csv", ""+
		"2024-01-15,A,North,SP1,1,10,100,90\n"+
		"2024-02-15,A,North,SP1,1,10,100,90\n"+
		"15/04/2024,A,North,SP1,1,10,100,90\n"+
		"5/7/24,A,North,SP1,1,10,100,90\n"+
		"???,A,North,SP1,1,10,100,90\n")

	agg, err := New(SalesExtracts())
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
	require.NoError(t, err)

	assert.Equal(t, dateModePermissive, res.Files[0].DateMode)
	assert.Equal(t, 1, res.Files[0].RowsDropped)

	labels := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"2024Q1", "2024Q2", "2024Q3"}, labels)
	assert.Equal(t, 200.0, res.Rows[0].TotalRevenue)
}

func TestAggregate_SkipsUnreadableFile(t *testing.T) {
	dir := newSalesDir(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "quy_3_2024.csv"), 0o755))

	var hooked []string
	agg, err := New(SalesExtracts(), WithFileHook(func(stats FileStats, err error) {
		hooked = append(hooked, stats.File)
	}))
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "quy_3_2024.csv", res.Skipped[0].File)
	assert.Len(t, res.Files, 2)
	assert.Equal(t, []string{"quy_1_2024.csv", "quy_2_2024.csv", "quy_3_2024.csv"}, hooked)
}

func TestAggregate_Failures(t *testing.T) {
	t.Run("no source files", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "template_header.csv", templateHeader)

		agg, err := New(SalesExtracts())
		require.NoError(t, err)
		_, err = agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
		assert.ErrorIs(t, err, ErrNoSourceFiles)
	})

	t.Run("no data", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "template_header.csv", templateHeader)
		writeFile(t, dir, "quy_1_2024.csv", "garbage,A,North,SP1,1,10,100,90\n")

		agg, err := New(SalesExtracts())
		require.NoError(t, err)
		_, err = agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("missing header template", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "quy_1_2024.csv", salesRows(10, 0))

		agg, err := New(SalesExtracts())
		require.NoError(t, err)
		_, err = agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoData)
		assert.Contains(t, err.Error(), "header template")
	})

	t.Run("missing columns", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "export.csv", "NGAYDONHANG,MASANPHAM\n5/1/24,SP1\n")

		agg, err := New(PreAggregated())
		require.NoError(t, err)
		_, err = agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("unsupported level", func(t *testing.T) {
		agg, err := New(SalesExtracts())
		require.NoError(t, err)
		_, err = agg.Aggregate(context.Background(), t.TempDir(), timeseries.Frequency("weekly"))
		assert.Error(t, err)
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := New(SalesExtracts(), WithChunkSize(0))
		assert.Error(t, err)
	})
}

func TestAggregate_PreAggregated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_export.csv", "\ufeffNGAYDONHANG,GAMHANG,MASANPHAM,Totals - Sum of SOLUONG,Totals - Sum of DOANHTHUSAUVAT,Totals - Sum of TIENVAT\n"+
		"5/1/24,Phones,P1,3,\"1,000\",10\n"+
		"6/1/24,Phones,P2,2,500,5\n"+
		"6/5/24,Laptops,P3,1,900,9\n")
	writeFile(t, dir, "b_ignored.csv", "NGAYDONHANG,GAMHANG\n5/1/24,Other\n")

	agg, err := New(PreAggregated())
	require.NoError(t, err)

	res, err := agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, "a_export.csv", res.Files[0].File)
	assert.Equal(t, 1, res.Files[0].ValuesCoerced)
	assert.Equal(t, "nhomsanpham", res.SegmentColumn)

	require.Len(t, res.Rows, 2)
	phones := res.Rows[0]
	if phones.Segment != "Phones" {
		phones = res.Rows[1]
	}
	assert.Equal(t, 5.0, phones.TotalQuantity)
	assert.Equal(t, 500.0, phones.TotalRevenue)
	assert.Equal(t, 0.0, phones.TotalActualRevenue)
	assert.Equal(t, 2, phones.UniqueProducts)
	assert.Nil(t, phones.Provenance.FileQuarter)
}

func TestAggregate_RecordsIngestMetrics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "template_header.csv", templateHeader)
	writeFile(t, dir, "quy_1_2024.csv", ""+
		"5/1/24,A,North,SP1,x,10,200,180\n"+
		"bad,A,North,SP2,1,10,100,90\n"+
		"6/1/24,A,North,SP2,1,10,100,90\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "quy_2_2024.csv"), 0o755))

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	agg, err := New(SalesExtracts(), WithMeter(provider.Meter(MeterName)))
	require.NoError(t, err)
	_, err = agg.Aggregate(context.Background(), dir, timeseries.Quarterly)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.Equal(t, int64(3), counterTotal(t, rm, "ingest_rows_read_total"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "ingest_rows_dropped_total"))
	assert.Equal(t, int64(1), counterTotal(t, rm, "ingest_values_coerced_total"))
	assert.Equal(t, int64(2), counterTotal(t, rm, "ingest_files_total"))
}

func counterTotal(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not recorded", name)
	return 0
}

func BenchmarkAggregate(b *testing.B) {
	dir := b.TempDir()
	require.NoError(b, os.WriteFile(filepath.Join(dir, "template_header.csv"), []byte(templateHeader), 0o644))
	require.NoError(b, os.WriteFile(filepath.Join(dir, "quy_1_2024.csv"), []byte(salesRows(20000, 0)), 0o644))

	agg, err := New(SalesExtracts(), WithChunkSize(5000))
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := agg.Aggregate(context.Background(), dir, timeseries.Quarterly); err != nil {
			b.Fatal(err)
		}
	}
}
