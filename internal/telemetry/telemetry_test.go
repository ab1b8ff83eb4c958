package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap/zaptest"
)

func TestProvider_ServesCounters(t *testing.T) {
	p, err := New("test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	counter, err := p.Meter("github.com/godilite/sales-trends/internal/aggregate").
		Int64Counter("ingest_rows_read_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 42, metric.WithAttributes(attribute.String("profile", "sales_extracts")))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ingest_rows_read_total")
	assert.Contains(t, string(body), `profile="sales_extracts"`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestProvider_Independent(t *testing.T) {
	a, err := New("test", nil)
	require.NoError(t, err)
	b, err := New("test", nil)
	require.NoError(t, err)

	assert.NoError(t, a.Shutdown(context.Background()))
	assert.NoError(t, b.Shutdown(context.Background()))
}
