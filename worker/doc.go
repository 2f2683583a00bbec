// Package worker выполняет объявленные запуски pipeline.
//
// Worker потребляет run.requested из RabbitMQ, восстанавливает граф
// из сохранённого документа по Registry и выполняет его локальным
// runner'ом. Итог фиксируется в хранилище запусков и объявляется
// через run.finished.
//
// Структура:
//   - worker.go — Worker, интерфейсы хранилищ и обработчик сообщений
//
// Использование:
//
//	w := worker.New(worker.Config{
//	    Runs:      runRepo,
//	    Pipelines: pipelineRepo,
//	    Registry:  registry,
//	    Runner:    runner.New(runner.Config{Logger: logger, Sink: sink}),
//	    Notifier:  notifier, // опционально
//	    Logger:    logger,
//	})
//
//	consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
//	    Queue:   mq.QueueRunsRequested,
//	    Handler: w.HandleRunRequested,
//	})
//	consumer.Start(ctx)
//
// Registry должен содержать функции работы всех типов задач,
// встречающихся в выполняемых документах; Parameter и GetItem
// восстанавливаются без регистрации.
package worker
