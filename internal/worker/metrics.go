package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthy_generation_tasks_total",
		Help: "Number of processed generation tasks by type and outcome.",
	}, []string{"task_type", "outcome"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worthy_generation_task_duration_seconds",
		Help:    "Duration of generation tasks by type.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"task_type"})

	tokensUsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worthy_generation_tokens_total",
		Help: "Total LLM tokens consumed by generation tasks.",
	}, []string{"task_type"})
)
