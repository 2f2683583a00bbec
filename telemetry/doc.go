// Package telemetry — логирование и метрики.
//
// Включает:
//   - logging.go — настройка structured logging (log/slog)
//   - metrics.go — Prometheus-метрики выполнения и планировщика
package telemetry
