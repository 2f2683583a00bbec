package core

// CallArgs — аргументы одного вызова задачи.
type CallArgs struct {
	// Args — позиционные аргументы.
	Args []any

	// Kwargs — именованные аргументы.
	Kwargs map[string]any

	// Upstream — дополнительные upstream задачи (чистый порядок).
	Upstream []Spec

	// Flow — явный flow-владелец. nil — взять из контекста
	// или создать новый пустой граф.
	Flow Flow
}

// Call привязывает аргументы вызова к объявленным параметрам задачи
// и превращает вызов в рёбра графа.
//
// Владелец определяется так: явный CallArgs.Flow → текущий flow
// контекста → новый пустой Graph. Разрешение никогда не падает
// из-за отсутствия flow.
//
// Call не различает литералы и результаты задач среди привязанных
// значений — эта классификация принадлежит flow.
func Call(actx *Context, s Spec, call CallArgs) (*Result, error) {
	if s == nil {
		return nil, ErrNilTask
	}

	bound, err := s.DeclaredParams().Bind(s.Describe().Name, call.Args, call.Kwargs)
	if err != nil {
		return nil, err
	}

	return resolveFlow(actx, call.Flow).SetDependencies(Dependencies{
		Task:           s,
		Upstream:       call.Upstream,
		KeywordResults: bound,
	})
}

// SetDependencies — нижний уровень Call: создаёт рёбра без привязки
// аргументов. Используется, когда нужны только ограничения порядка
// или уже готовая привязка.
func SetDependencies(actx *Context, flow Flow, d Dependencies) (*Result, error) {
	return resolveFlow(actx, flow).SetDependencies(d)
}

// resolveFlow выбирает flow-владельца для вызова.
func resolveFlow(actx *Context, explicit Flow) Flow {
	if explicit != nil {
		return explicit
	}
	if f := actx.currentFlow(); f != nil {
		return f
	}
	return NewGraph()
}
