package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestObservability_RecordsRequestsAndSpans(t *testing.T) {
	reg := promclient.NewRegistry()
	recorder := tracetest.NewSpanRecorder()

	obs, err := New(Options{
		ServiceName:   "loan-assistant-test",
		Registerer:    reg,
		SpanProcessor: recorder,
	})
	require.NoError(t, err)
	defer func() { _ = obs.Shutdown(context.Background()) }()

	obs.RecordRequest(context.Background(), "/api/chat", 200, 12*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "http_requests") {
			found = true
		}
	}
	assert.True(t, found, "request counter not exported")

	_, span := obs.Tracer().Start(context.Background(), "router.reply")
	span.End()
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "router.reply", ended[0].Name())
}

func TestObservability_NilIsSafe(t *testing.T) {
	var obs *Observability
	obs.RecordRequest(context.Background(), "/api/chat", 200, time.Millisecond)
	assert.NotNil(t, obs.Tracer())
	assert.NoError(t, obs.Shutdown(context.Background()))
}
