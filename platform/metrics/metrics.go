// Package metrics exposes Prometheus collectors for the pipeline engine.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_transitions_total",
			Help: "Total number of applied stage transitions",
		},
		[]string{"from", "to", "bypass"},
	)

	StageDeficiencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_deficiencies_total",
			Help: "Total number of stage transitions refused for missing fields",
		},
		[]string{"target"},
	)

	ConditionDocumentGates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_condition_document_required_total",
			Help: "Total number of condition status changes blocked for a missing document",
		},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_persistence_failures_total",
			Help: "Total number of failed lead or condition writes",
		},
		[]string{"entity", "outcome"},
	)

	TaskDueReminders = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_task_due_reminders_total",
			Help: "Total number of pending-app task due reminders delivered",
		},
	)
)

// Handler serves the default Prometheus registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
