package fanout

import (
	"time"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/observability"
)

// Hooks captures writer-level observability events.
type Hooks interface {
	ObserveStep(target model.EntityType, op Operation, status string, dur time.Duration)
	ObservePlan(event, strategy, status string, dur time.Duration)
	IncPartialFailure(event string)
	IncCompensation(status string)
}

type noopHooks struct{}

func (noopHooks) ObserveStep(model.EntityType, Operation, string, time.Duration) {}
func (noopHooks) ObservePlan(string, string, string, time.Duration)              {}
func (noopHooks) IncPartialFailure(string)                                       {}
func (noopHooks) IncCompensation(string)                                         {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewMetricsHooks creates hooks backed by prometheus collectors.
func NewMetricsHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: m}
}

func (h *metricsHooks) ObserveStep(target model.EntityType, op Operation, status string, _ time.Duration) {
	h.metrics.ObserveFanoutStep(string(target), op.String(), status)
}

func (h *metricsHooks) ObservePlan(event, strategy, status string, dur time.Duration) {
	h.metrics.ObserveFanoutPlan(event, strategy, status, dur)
}

func (h *metricsHooks) IncPartialFailure(event string) {
	h.metrics.IncPartialFailure(event)
}

func (h *metricsHooks) IncCompensation(status string) {
	h.metrics.IncCompensation(status)
}
