// Package metrics exports form lifecycle counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/options"
)

const namespace = "formflow"

// Collector implements form.Metrics.
type Collector struct {
	optionLoads *prometheus.CounterVec
	submits     *prometheus.CounterVec
	listViews   *prometheus.CounterVec
}

var _ form.Metrics = (*Collector)(nil)

// New registers the collectors on reg, or on the default registerer when reg
// is nil.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		optionLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "option_loads_total",
			Help:      "Option set loads by record kind, final status and attempts used.",
		}, []string{"kind", "status", "attempts"}),
		submits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_total",
			Help:      "Form submits by record kind and outcome.",
		}, []string{"kind", "outcome"}),
		listViews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_refreshes_total",
			Help:      "List screen refreshes by record kind and result.",
		}, []string{"kind", "result"}),
	}
}

// OptionsLoaded records the final state of one option load.
func (c *Collector) OptionsLoaded(kind string, status options.Status, attempts int) {
	c.optionLoads.WithLabelValues(kind, string(status), strconv.Itoa(attempts)).Inc()
}

// Submitted records one submit outcome.
func (c *Collector) Submitted(kind, outcome string) {
	c.submits.WithLabelValues(kind, outcome).Inc()
}

// ListRefreshed records one list screen refresh.
func (c *Collector) ListRefreshed(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.listViews.WithLabelValues(kind, result).Inc()
}

// Handler serves the metrics gathered by g, or the default gatherer when g
// is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
