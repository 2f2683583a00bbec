package core

import (
	"fmt"
	"sort"
)

// Param — один объявленный параметр работы задачи.
type Param struct {
	// Name — имя параметра.
	Name string

	// Optional — параметр может не получить значения при вызове.
	Optional bool
}

// ParamList — объявленный список параметров задачи.
//
// Список задаётся как данные при конструировании задачи — рефлексии
// над сигнатурами функций нет. Порядок Params определяет привязку
// позиционных аргументов.
type ParamList struct {
	// Params — упорядоченные параметры.
	Params []Param

	// Overflow — имя слота, принимающего произвольные лишние
	// именованные аргументы (аналог **kwargs). Пустая строка — слота нет.
	// Захваченные аргументы разворачиваются в итоговую привязку
	// каждый под своим именем, а не вкладываются под Overflow.
	Overflow string
}

// Params объявляет список обязательных параметров по именам.
func Params(names ...string) ParamList {
	pl := ParamList{Params: make([]Param, len(names))}
	for i, n := range names {
		pl.Params[i] = Param{Name: n}
	}
	return pl
}

// WithOptional добавляет необязательные параметры в конец списка.
func (pl ParamList) WithOptional(names ...string) ParamList {
	for _, n := range names {
		pl.Params = append(pl.Params, Param{Name: n, Optional: true})
	}
	return pl
}

// WithOverflow задаёт имя overflow-слота.
func (pl ParamList) WithOverflow(name string) ParamList {
	pl.Overflow = name
	return pl
}

// Names возвращает упорядоченные имена объявленных параметров.
func (pl ParamList) Names() []string {
	names := make([]string, len(pl.Params))
	for i, p := range pl.Params {
		names[i] = p.Name
	}
	return names
}

// has проверяет, объявлен ли параметр с таким именем.
func (pl ParamList) has(name string) bool {
	for _, p := range pl.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Bind привязывает аргументы вызова к объявленным параметрам.
//
// Правила:
//   - позиционные аргументы привязываются по порядку объявления;
//   - именованные аргументы привязываются по имени; повторная привязка
//     уже занятого параметра — ошибка;
//   - неизвестные имена попадают в привязку как есть, если объявлен
//     overflow-слот, иначе — ошибка;
//   - каждый обязательный параметр должен получить значение.
//
// Значения не интерпретируются: литерал и результат другой задачи
// проходят одинаково, их различает flow при создании рёбер.
func (pl ParamList) Bind(task string, args []any, kwargs map[string]any) (map[string]any, error) {
	if len(args) > len(pl.Params) {
		return nil, &BindingError{
			Task: task,
			Arg:  fmt.Sprintf("takes %d, got %d", len(pl.Params), len(args)),
			Err:  ErrTooManyArguments,
		}
	}

	bound := make(map[string]any, len(args)+len(kwargs))
	for i, v := range args {
		bound[pl.Params[i].Name] = v
	}

	// Имена сортируются, чтобы при нескольких ошибках привязки
	// сообщение было детерминированным.
	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, k := range names {
		switch {
		case pl.has(k):
			if _, taken := bound[k]; taken {
				return nil, &BindingError{Task: task, Arg: k, Err: ErrDuplicateArgument}
			}
			bound[k] = kwargs[k]
		case pl.Overflow != "":
			// Разворачиваем overflow: каждый лишний аргумент становится
			// самостоятельным слотом зависимости.
			bound[k] = kwargs[k]
		default:
			return nil, &BindingError{Task: task, Arg: k, Err: ErrUnknownKeyword}
		}
	}

	for _, p := range pl.Params {
		if p.Optional {
			continue
		}
		if _, ok := bound[p.Name]; !ok {
			return nil, &BindingError{Task: task, Arg: p.Name, Err: ErrMissingArgument}
		}
	}

	return bound, nil
}
