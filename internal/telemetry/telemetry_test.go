package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func spanNames(recorder *tracetest.SpanRecorder) []string {
	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(nil, time.Second))
}

func TestBusinessEvents(t *testing.T) {
	recorder := installRecorder(t)
	be := NewBusinessEvents()

	_, span := be.TraceReadingCompleted(context.Background(), "u1", "2025-01-01", 2, true)
	span.End()
	_, span = be.TraceDiscussionCreated(context.Background(), "u1", "")
	span.End()
	_, span = be.TraceToggle(context.Background(), "like", "d1")
	span.End()

	assert.Equal(t, []string{"reading.set_completion", "community.create_discussion", "community.toggle_like"}, spanNames(recorder))
}

func TestGORMTracingPlugin(t *testing.T) {
	recorder := installRecorder(t)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Use(GORMTracingPlugin("sqlite")))

	type row struct {
		ID   int
		Name string
	}
	require.NoError(t, db.AutoMigrate(&row{}))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&row{Name: "a"}).Error)
	var out []row
	require.NoError(t, db.WithContext(ctx).Find(&out).Error)

	names := spanNames(recorder)
	assert.Contains(t, names, "db.insert")
	assert.Contains(t, names, "db.select")
}

func TestInstrumentedHTTPClient(t *testing.T) {
	recorder := installRecorder(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("traceparent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	otel.SetTextMapPropagator(propagationForTest())
	client := NewInstrumentedHTTPClient(HTTPClientConfig{ServiceName: "ai-analysis"})
	resp, err := client.Get(srv.URL + "/analyze")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, spanNames(recorder), "ai-analysis GET /analyze")
}

func propagationForTest() propagation.TextMapPropagator {
	return propagation.TraceContext{}
}
