// Package repo — репозитории поверх PostgreSQL (pgx).
//
// Структура:
//   - db.go            — пул соединений
//   - errors.go        — общие ошибки репозиториев
//   - pipeline_repo.go — pipelines (граф в виде Document, JSONB)
//   - run_repo.go      — запуски и их отчёты
//   - schedule_repo.go — расписания (реализует интерфейсы scheduler)
//
// Репозитории возвращают ErrNotFound вместо pgx.ErrNoRows
// и не логируют: решение об уровне важности принимает вызывающий.
package repo
