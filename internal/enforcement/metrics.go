package enforcement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blockedCertifications = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "railledger_blocked_certifications",
		Help: "Number of certifications currently evaluated as blocked.",
	})

	gateDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "railledger_gate_denials_total",
		Help: "Enforcement gate denials by action type.",
	}, []string{"action_type"})

	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "railledger_enforcement_evaluations_total",
		Help: "Certification enforcement evaluations by outcome.",
	}, []string{"outcome"})
)
