// Package mq — инфраструктура обмена сообщениями через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//   - sink.go       — адаптеры событий задач и итогов запусков поверх Publisher
//
// Типы сообщений:
//   - run.requested — планировщик запросил выполнение pipeline
//   - task.state    — задача сменила состояние во время выполнения
//   - run.finished  — выполнение pipeline завершилось
//
// Exchanges:
//   - konveyer.runs   — события запусков
//   - konveyer.events — события задач
//   - konveyer.dlq    — dead letter queue
package mq
