package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(func() float64 { return 3 })
	m.TimersScheduled.Inc()
	m.Transitions.WithLabelValues("OFFLINE", "ONLINE").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TimersScheduled))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "presence_expiry_timers_live 3")
	assert.Contains(t, string(body), `presence_status_transitions_total{from="OFFLINE",to="ONLINE"} 1`)
}
