package compat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pcbuild_compat_evaluations_total",
			Help: "Total compatibility evaluations.",
		},
	)
	issuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcbuild_compat_issues_total",
			Help: "Compatibility issues produced, by severity.",
		},
		[]string{"severity"},
	)
	rulesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcbuild_compat_rules_skipped_total",
			Help: "Rules skipped during evaluation because they could not be evaluated.",
		},
		[]string{"reason"},
	)
)
