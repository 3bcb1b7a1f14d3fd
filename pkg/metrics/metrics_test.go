package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolStarted(t *testing.T) {
	m := New()

	done := m.ToolStarted("create_incident")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.inFlight))

	done(nil)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.toolInvocations.WithLabelValues("create_incident", OutcomeSuccess)))

	m.ToolStarted("create_incident")(errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.toolInvocations.WithLabelValues("create_incident", OutcomeFailure)))
}

func TestObserveRemote(t *testing.T) {
	m := New()

	m.ObserveRemote(http.MethodPost, "incident", 201, 10*time.Millisecond)
	m.ObserveRemote(http.MethodGet, "incident", 0, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.remoteRequests.WithLabelValues("POST", "incident", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remoteRequests.WithLabelValues("GET", "incident", "error")))
}

func TestIndependentRegistries(t *testing.T) {
	first := New()
	second := New()

	first.ObserveGeneration(nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(first.generativeRequests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, float64(0), testutil.ToFloat64(second.generativeRequests.WithLabelValues(OutcomeSuccess)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveReload(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "mcp_servicenow_config_reloads_total"), "expected reload counter in output")
}
