// Package core содержит авторский слой DSL: объявление задач
// и привязку их вызовов к графу зависимостей.
//
// Включает:
//   - task.go      — Task: единица работы с метаданными выполнения
//   - params.go    — объявленный список параметров и привязка аргументов
//   - call.go      — Call / SetDependencies: превращение вызова в рёбра графа
//   - parameter.go — Parameter: задача-вход pipeline с фиксированной идентичностью
//   - result.go    — Result: одно вхождение задачи в конкретный flow
//   - flow.go      — Graph: владелец узлов и рёбер, валидация
//   - context.go   — Context: явный авторский контекст (flow, группа, теги)
//   - outcome.go   — Outcome и State: результаты вычисления задач
//   - triggers.go  — триггеры готовности по состояниям upstream задач
//   - document.go  — сериализуемое описание графа
//   - rehydrate.go — восстановление графа из документа по Registry
//
// Построение графа синхронно и однопоточно: все ошибки привязки
// и идентичности возникают в месте вызова. Выполнение задач
// (retry, таймауты, триггеры) — зона ответственности пакета runner.
package core
