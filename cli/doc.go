// Package cli реализует инструмент командной строки Konveyer.
//
// # Обзор
//
// CLI управляет pipelines, runs и schedules напрямую через
// PostgreSQL; команда run start дополнительно объявляет запуск
// в RabbitMQ, а run work потребляет объявленные запуски и
// выполняет их.
//
// # Ключевые компоненты
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: konveyer pipeline list --json | jq .
// Состояния запусков подсвечиваются цветом в терминале (NO_COLOR
// отключает подсветку).
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - pipeline: list, show, publish, delete
//   - run: list, show, start, work
//   - schedule: list, create, show, enable, disable, delete
//
// Каждая группа создаётся через фабричную функцию (NewPipelineCmd
// и т.д.), принимающую outputFn — замыкание для ленивого создания
// Output после парсинга PersistentFlags.
package cli
