package core

import (
	"errors"
	"fmt"
)

// Ошибки привязки аргументов вызова.
var (
	// ErrTooManyArguments — позиционных аргументов больше, чем объявлено параметров.
	ErrTooManyArguments = errors.New("too many positional arguments")

	// ErrUnknownKeyword — именованный аргумент не объявлен и overflow-слота нет.
	ErrUnknownKeyword = errors.New("unexpected keyword argument")

	// ErrDuplicateArgument — параметр получил значение и позиционно, и по имени.
	ErrDuplicateArgument = errors.New("multiple values for argument")

	// ErrMissingArgument — обязательный параметр не получил значения.
	ErrMissingArgument = errors.New("missing required argument")
)

// Ошибки идентичности задач.
var (
	// ErrNameImmutable — попытка переименовать уже названный Parameter.
	ErrNameImmutable = errors.New("parameter name can not be changed")

	// ErrSlugMismatch — попытка задать Parameter slug, отличный от имени.
	ErrSlugMismatch = errors.New("parameter slug must equal its name")
)

// Ошибки графа зависимостей.
var (
	// ErrNilTask — в операцию графа передана nil-задача.
	ErrNilTask = errors.New("task is nil")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrDuplicateSlug — несколько разных задач с одинаковым slug.
	ErrDuplicateSlug = errors.New("duplicate task slug")
)

// Ошибки восстановления графа из документа.
var (
	// ErrUnknownTaskType — тип задачи не зарегистрирован в Registry.
	ErrUnknownTaskType = errors.New("unknown task type")

	// ErrBadTaskPosition — ребро или константа ссылается на позицию
	// вне списка задач документа.
	ErrBadTaskPosition = errors.New("task position out of range")
)

// BindingError — ошибка привязки аргументов вызова к объявленным параметрам.
//
// Возникает синхронно в месте вызова и не подлежит retry.
type BindingError struct {
	Task string // имя задачи, чей вызов не удалось привязать
	Arg  string // имя аргумента, вызвавшего ошибку (может быть пустым)
	Err  error  // базовая ошибка (ErrTooManyArguments и т.д.)
}

func (e *BindingError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("bind call of task %q: %s: %q", e.Task, e.Err, e.Arg)
	}
	return fmt.Sprintf("bind call of task %q: %s", e.Task, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

// IdentityError — нарушение неизменяемости идентичности задачи.
//
// Фатальна для авторского скрипта: возникает при попытке переименовать
// Parameter или задать ему slug, не совпадающий с именем.
type IdentityError struct {
	Task  string // текущее имя задачи
	Field string // поле, которое пытались изменить ("name" или "slug")
	Value string // отвергнутое значение
	Err   error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("task %q: set %s to %q: %s", e.Task, e.Field, e.Value, e.Err)
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}
