package core

import "context"

// Parameter — задача-вход pipeline.
//
// Имя параметра пишется один раз: первая запись успешна, каждая
// последующая — IdentityError. Slug не хранится отдельно, а всегда
// вычисляется равным имени: flow использует его для контроля
// уникальности имён параметров, поэтому инвариант slug == name
// выполняется всегда.
type Parameter struct {
	*Task

	named    bool
	required bool
	def      any
}

// ParameterOptions — необязательные настройки параметра.
type ParameterOptions struct {
	// Description — описание параметра.
	Description string

	// Default — значение по умолчанию. Ненулевое значение делает
	// параметр необязательным независимо от Optional.
	Default any

	// Optional — параметр не обязателен даже без значения по умолчанию.
	Optional bool
}

// NewParameter конструирует параметр и регистрирует его в текущем
// flow контекста.
func NewParameter(actx *Context, name string, opts ParameterOptions) *Parameter {
	required := !opts.Optional
	if opts.Default != nil {
		required = false
	}

	p := &Parameter{
		Task: newTask(actx, Options{
			Description: opts.Description,
			TypeName:    "Parameter",
		}),
		required: required,
		def:      opts.Default,
	}

	// Первая запись имени; slug не пишется — он вычисляемый.
	p.Task.name = name
	p.named = true

	register(actx, p)
	return p
}

// Slug всегда равен имени параметра.
func (p *Parameter) Slug() string {
	return p.Name()
}

// Required возвращает true, если параметр обязателен.
func (p *Parameter) Required() bool {
	return p.required
}

// Default возвращает значение по умолчанию.
func (p *Parameter) Default() any {
	return p.def
}

// SetName переименовывает параметр. Разрешена только первая запись.
func (p *Parameter) SetName(name string) error {
	if p.named {
		return &IdentityError{Task: p.Name(), Field: "name", Value: name, Err: ErrNameImmutable}
	}
	p.Task.name = name
	p.named = true
	return nil
}

// SetSlug принимает запись, совпадающую с текущим именем (no-op),
// и отвергает любую другую. Slug отдельно не хранится.
func (p *Parameter) SetSlug(slug string) error {
	if slug != p.Name() {
		return &IdentityError{Task: p.Name(), Field: "slug", Value: slug, Err: ErrSlugMismatch}
	}
	return nil
}

// Describe расширяет базовую запись полями required и default.
func (p *Parameter) Describe() Info {
	info := p.Task.Describe()
	info.Slug = p.Slug()
	required := p.required
	info.Required = &required
	info.Default = p.def
	return info
}

// Evaluate ищет значение параметра среди значений запуска.
//
// Отсутствие значения обязательного параметра — исход FAIL
// с описательной причиной; исполнитель применяет к нему retry-политику.
// Необязательный параметр без значения возвращает default.
func (p *Parameter) Evaluate(ctx context.Context, in Inputs) Outcome {
	value, ok := in.Parameters[p.Name()]
	if !ok {
		if p.required {
			return Failf("parameter %q was required but not provided", p.Name())
		}
		return Success(p.def)
	}
	return Success(value)
}
