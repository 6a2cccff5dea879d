package form

import "github.com/goliatone/go-formflow/pkg/options"

// Metrics receives form lifecycle observations.
type Metrics interface {
	OptionsLoaded(kind string, status options.Status, attempts int)
	Submitted(kind, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) OptionsLoaded(string, options.Status, int) {}
func (nopMetrics) Submitted(string, string)                  {}
