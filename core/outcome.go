package core

import (
	"context"
	"fmt"
)

// State — состояние выполнения задачи с точки зрения графа.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED (после исчерпания retry)
//	                  ↘ WAITING (задача попросила отложить выполнение)
//	          (или) → SKIPPED (триггер не сработал / upstream пропущен)
type State string

const (
	// StatePending — задача ещё не выполнялась.
	StatePending State = "PENDING"

	// StateRunning — задача выполняется.
	StateRunning State = "RUNNING"

	// StateSucceeded — задача успешно завершена.
	StateSucceeded State = "SUCCEEDED"

	// StateFailed — задача завершилась с ошибкой (после всех retry).
	StateFailed State = "FAILED"

	// StateSkipped — задача пропущена (триггер вернул false).
	StateSkipped State = "SKIPPED"

	// StateWaiting — задача отложена до следующего запуска.
	StateWaiting State = "WAITING"
)

// IsTerminal возвращает true, если состояние финальное.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateSkipped:
		return true
	default:
		return false
	}
}

// IsSuccessful возвращает true для успешного завершения.
func (s State) IsSuccessful() bool {
	return s == StateSucceeded
}

// IsFailed возвращает true для неудачного завершения.
func (s State) IsFailed() bool {
	return s == StateFailed
}

// OutcomeKind — вид результата одного вычисления задачи.
type OutcomeKind string

const (
	// OutcomeSuccess — задача вернула значение.
	OutcomeSuccess OutcomeKind = "SUCCESS"

	// OutcomeFail — задача завершилась неудачей; подлежит retry-политике.
	OutcomeFail OutcomeKind = "FAIL"

	// OutcomeWait — задача просит отложить выполнение (например, внешние
	// данные ещё не готовы). Downstream задачи не выполняются.
	OutcomeWait OutcomeKind = "WAIT"

	// OutcomeSkip — задача просит пропустить себя без ошибки.
	OutcomeSkip OutcomeKind = "SKIP"
)

// Outcome — размеченный результат вычисления задачи.
//
// Исполнитель переключается по Kind; нелокальной передачи управления
// (panic/recover) для ожидаемых исходов нет.
type Outcome struct {
	// Kind — вид результата.
	Kind OutcomeKind `json:"kind"`

	// Value — значение задачи (только для SUCCESS).
	Value any `json:"value,omitempty"`

	// Reason — человекочитаемая причина (для FAIL, WAIT, SKIP).
	Reason string `json:"reason,omitempty"`
}

// Success возвращает успешный Outcome со значением.
func Success(value any) Outcome {
	return Outcome{Kind: OutcomeSuccess, Value: value}
}

// Fail возвращает неудачный Outcome с причиной.
func Fail(reason string) Outcome {
	return Outcome{Kind: OutcomeFail, Reason: reason}
}

// Failf возвращает неудачный Outcome с форматированной причиной.
func Failf(format string, args ...any) Outcome {
	return Outcome{Kind: OutcomeFail, Reason: fmt.Sprintf(format, args...)}
}

// Wait возвращает отложенный Outcome с причиной.
func Wait(reason string) Outcome {
	return Outcome{Kind: OutcomeWait, Reason: reason}
}

// Skip возвращает пропускающий Outcome с причиной.
func Skip(reason string) Outcome {
	return Outcome{Kind: OutcomeSkip, Reason: reason}
}

// IsSuccess возвращает true для успешного результата.
func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSuccess
}

// Inputs — входные данные одного вычисления задачи.
type Inputs struct {
	// Args — привязанные аргументы вызова. Значения upstream задач
	// уже заменены их результатами.
	Args map[string]any

	// Parameters — значения параметров pipeline для этого запуска
	// (имя параметра → значение).
	Parameters map[string]any
}

// RunFunc — пользовательская функция работы задачи.
//
// Функция должна уважать ctx.Done() для таймаутов и отмены.
type RunFunc func(ctx context.Context, in Inputs) Outcome
