// internal/common/httpclient/client.go
package httpclient

import (
	"net/http"
	"time"

	"loan-assistant/internal/common/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New returns a client for calls to service. Requests are counted and timed
// under the service label. A zero timeout leaves deadlines to the request
// context.
func New(service string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(service, nil),
	}
}

// Transport wraps base (http.DefaultTransport when nil) with the outbound
// request metrics.
func Transport(service string, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	labels := prometheus.Labels{"service": service}
	return promhttp.InstrumentRoundTripperCounter(
		metrics.OutboundRequestsTotal.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(
			metrics.OutboundRequestDuration.MustCurryWith(labels),
			base,
		),
	)
}
