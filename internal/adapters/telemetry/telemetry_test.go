package telemetry_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.trai.ch/sa/internal/adapters/telemetry"
)

func TestOTelTracer_RecordsSpans(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := telemetry.NewOTelTracerWithProvider(tp)

	ctx, parent := tracer.Start(t.Context(), "lock")
	parent.SetAttribute("packages", 3)
	parent.SetAttribute("timeout", time.Second)
	_, child := tracer.Start(ctx, "resolve")
	child.RecordError(errors.New("conflict"))
	child.RecordError(nil)
	child.End()
	parent.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "resolve", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[1].Attributes(), attribute.Int("packages", 3))
	assert.Contains(t, spans[1].Attributes(), attribute.String("timeout", "1s"))
}

func TestNoOpTracer(t *testing.T) {
	t.Parallel()

	ctx, span := telemetry.NoOpTracer{}.Start(t.Context(), "x")
	assert.Equal(t, t.Context(), ctx)
	span.SetAttribute("k", "v")
	span.RecordError(errors.New("ignored"))
	span.End()
}

func TestMetrics_CountersAndTextfile(t *testing.T) {
	t.Parallel()

	m := telemetry.NewMetrics()
	m.IndexRequest("pypi.org", 200)
	m.IndexRequest("pypi.org", 200)
	m.HTTPCache("hit")
	m.ContentCache("stored")
	m.ResolverStep("decision")
	m.InstalledFiles("link", 4)
	m.InstalledFiles("copy", 0)

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	path := filepath.Join(t.TempDir(), "out", "sa.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `sa_index_requests_total{host="pypi.org",status="200"} 2`)
	assert.Contains(t, text, `sa_installed_files_total{mode="link"} 4`)
	assert.False(t, strings.Contains(text, `mode="copy"`))
}
