package engine

import "github.com/prometheus/client_golang/prometheus"

type metricsProvider struct {
	sessions    *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	emergencies *prometheus.CounterVec
	stages      *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

func newMetricsProvider(registry *prometheus.Registry) *metricsProvider {
	if registry == nil {
		return nil
	}

	provider := &metricsProvider{
		sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborguide_sessions_started_total",
				Help: "Total number of sessions started by initial stage",
			},
			[]string{"stage"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborguide_decisions_recorded_total",
				Help: "Total number of critical decision answers recorded",
			},
			[]string{"decision", "response"},
		),
		emergencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborguide_emergencies_raised_total",
				Help: "Total number of emergencies raised by type",
			},
			[]string{"emergency_type"},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborguide_stage_transitions_total",
				Help: "Total number of stage transitions",
			},
			[]string{"from", "to"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laborguide_persistence_failures_total",
				Help: "Total number of failed state store operations",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		provider.sessions,
		provider.decisions,
		provider.emergencies,
		provider.stages,
		provider.failures,
	)

	return provider
}

func (p *metricsProvider) IncrementSessions(stage string) {
	if p != nil {
		p.sessions.WithLabelValues(stage).Inc()
	}
}

func (p *metricsProvider) IncrementDecisions(decision, response string) {
	if p != nil {
		p.decisions.WithLabelValues(decision, response).Inc()
	}
}

func (p *metricsProvider) IncrementEmergencies(emergencyType string) {
	if p != nil {
		p.emergencies.WithLabelValues(emergencyType).Inc()
	}
}

func (p *metricsProvider) IncrementStageTransitions(from, to string) {
	if p != nil {
		p.stages.WithLabelValues(from, to).Inc()
	}
}

func (p *metricsProvider) IncrementFailures(op string) {
	if p != nil {
		p.failures.WithLabelValues(op).Inc()
	}
}
