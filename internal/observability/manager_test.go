package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/gestorventas/deposito/internal/config"
)

func TestPrometheusHandlerExposesLedgerCounters(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	mgr, err := NewManager(lc, config.Config{Observability: config.Observability{
		ServiceName:     "deposito",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
		PrometheusPath:  "/metrics",
	}}, zap.NewNop())
	require.NoError(t, err)
	lc.RequireStart()
	defer lc.RequireStop()

	assert.True(t, mgr.MetricsEnabled())
	assert.False(t, mgr.TracingEnabled())
	require.NotNil(t, mgr.MetricsHandler())

	counter, err := mgr.meterProvider.Meter("test").Int64Counter("ledger.mutations")
	require.NoError(t, err)
	counter.Add(context.Background(), 2, metric.WithAttributes(attribute.String("op", "line.added")))

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "ledger_mutations")
	assert.Contains(t, string(body), `op="line.added"`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestDisabledProvidersStayNil(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	mgr, err := NewManager(lc, config.Config{Observability: config.Observability{
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.MetricsHandler())
}

func TestServiceVersion(t *testing.T) {
	assert.NotEmpty(t, serviceVersion())
}
