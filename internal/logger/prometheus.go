package logger

import (
	"github.com/rs/zerolog"

	"github.com/spacehome/spacehome/internal/metrics"
)

// PrometheusHook counts log statements per level.
type PrometheusHook struct{}

// Run implements zerolog.Hook run method.
func (h PrometheusHook) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level != zerolog.NoLevel {
		metrics.LogStatements.WithLabelValues(level.String()).Inc()
	}
}

// NewPrometheusHook returns a prometheus hook counting how often a specific log level was used.
func NewPrometheusHook() PrometheusHook {
	return PrometheusHook{}
}
