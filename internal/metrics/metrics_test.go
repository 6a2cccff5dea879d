package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/options"
)

func TestCollectorCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)

	c.OptionsLoaded("sites", options.StatusReady, 1)
	c.OptionsLoaded("sites", options.StatusReady, 1)
	c.OptionsLoaded("employees", options.StatusFailed, 3)
	c.Submitted("payments", form.OutcomeSuccess)
	c.Submitted("payments", form.OutcomeStale)
	c.ListRefreshed("payments", nil)
	c.ListRefreshed("payments", errors.New("boom"))

	require.Equal(t, float64(2), testutil.ToFloat64(c.optionLoads.WithLabelValues("sites", "ready", "1")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.optionLoads.WithLabelValues("employees", "failed", "3")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.submits.WithLabelValues("payments", "stale_selection")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.listViews.WithLabelValues("payments", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg).Submitted("payments", form.OutcomeSuccess)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `formflow_submits_total{kind="payments",outcome="success"} 1`))
}
