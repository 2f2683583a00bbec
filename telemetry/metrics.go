package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики локального исполнителя.
var (
	// RunsTotal — количество завершённых запусков по итоговому состоянию.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "konveyer_runs_total",
		Help: "Completed pipeline runs by final state.",
	}, []string{"state"})

	// TaskEvaluationsTotal — количество вычислений задач по исходу.
	TaskEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "konveyer_task_evaluations_total",
		Help: "Task evaluations by resulting state.",
	}, []string{"state"})

	// TaskRetriesTotal — количество повторных попыток задач.
	TaskRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "konveyer_task_retries_total",
		Help: "Task retry attempts.",
	})
)

// Метрики планировщика.
var (
	// SchedulerTicksTotal — количество тиков планировщика.
	SchedulerTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "konveyer_scheduler_ticks_total",
		Help: "Scheduler ticks executed.",
	})

	// ScheduledRunsTotal — количество запусков, созданных планировщиком.
	ScheduledRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "konveyer_scheduled_runs_total",
		Help: "Runs created by the scheduler.",
	})
)
