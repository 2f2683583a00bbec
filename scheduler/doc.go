// Package scheduler реализует логику планировщика запусков.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at,
// заводит pending запуски и объявляет их через Announcer.
//
// Структура:
//   - schedule.go  — тип Schedule и интерфейсы хранилищ
//   - scheduler.go — основная логика (Tick, processSchedule)
//   - cron.go      — cron-выражения и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: scheduleRepo,
//	    Runs:      runRepo,
//	    Pipelines: pipelineRepo,
//	    Announcer: announcer, // опционально
//	    Logger:    logger,
//	})
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	if err := sched.Tick(ctx); err != nil {
//	    logger.Error("scheduler tick failed", "error", err)
//	}
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
