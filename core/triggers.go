package core

// Trigger — предикат готовности задачи по состояниям её upstream задач.
//
// Вход — отображение upstream задача → её состояние. Пустое отображение
// (задача без зависимостей) триггеры по умолчанию трактуют как успех.
// Name сериализуется в Info и позволяет восстановить предикат
// через TriggerByName.
type Trigger struct {
	// Name — стабильное имя триггера для сериализации.
	Name string

	// Ready — сам предикат.
	Ready func(upstream map[Spec]State) bool
}

// Стандартные триггеры.
var (
	// AllSuccessful — все upstream задачи успешны (по умолчанию).
	AllSuccessful = Trigger{
		Name: "all_successful",
		Ready: func(upstream map[Spec]State) bool {
			for _, s := range upstream {
				if !s.IsSuccessful() {
					return false
				}
			}
			return true
		},
	}

	// AllFinished — все upstream задачи достигли финального состояния,
	// успех не обязателен.
	AllFinished = Trigger{
		Name: "all_finished",
		Ready: func(upstream map[Spec]State) bool {
			for _, s := range upstream {
				if !s.IsTerminal() {
					return false
				}
			}
			return true
		},
	}

	// AllFailed — все upstream задачи завершились неудачей.
	AllFailed = Trigger{
		Name: "all_failed",
		Ready: func(upstream map[Spec]State) bool {
			for _, s := range upstream {
				if !s.IsFailed() {
					return false
				}
			}
			return len(upstream) > 0
		},
	}

	// AnySuccessful — хотя бы одна upstream задача успешна.
	AnySuccessful = Trigger{
		Name: "any_successful",
		Ready: func(upstream map[Spec]State) bool {
			if len(upstream) == 0 {
				return true
			}
			for _, s := range upstream {
				if s.IsSuccessful() {
					return true
				}
			}
			return false
		},
	}

	// AnyFailed — хотя бы одна upstream задача неудачна
	// (для задач-обработчиков ошибок).
	AnyFailed = Trigger{
		Name: "any_failed",
		Ready: func(upstream map[Spec]State) bool {
			for _, s := range upstream {
				if s.IsFailed() {
					return true
				}
			}
			return false
		},
	}

	// ManualOnly — задача никогда не готова автоматически.
	ManualOnly = Trigger{
		Name: "manual_only",
		Ready: func(upstream map[Spec]State) bool {
			return false
		},
	}
)

// builtinTriggers — таблица стандартных триггеров по имени.
var builtinTriggers = map[string]Trigger{
	AllSuccessful.Name: AllSuccessful,
	AllFinished.Name:   AllFinished,
	AllFailed.Name:     AllFailed,
	AnySuccessful.Name: AnySuccessful,
	AnyFailed.Name:     AnyFailed,
	ManualOnly.Name:    ManualOnly,
}

// TriggerByName возвращает стандартный триггер по имени из Info.
// Для неизвестных имён возвращает false.
func TriggerByName(name string) (Trigger, bool) {
	t, ok := builtinTriggers[name]
	return t, ok
}
