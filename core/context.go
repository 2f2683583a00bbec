package core

// Context — явный авторский контекст.
//
// Передаётся по ссылке в конструкторы задач и в Call; замена
// неявного глобального состояния. nil-контекст допустим и означает
// «без текущего flow, без группы, без тегов».
//
// Контекст читается один раз в момент конструирования задачи:
// последующие изменения Group или Tags не влияют на уже
// сконструированные задачи.
type Context struct {
	// Flow — текущий flow; задачи регистрируются в нём при создании.
	Flow Flow

	// Group — группа по умолчанию для новых задач.
	Group string

	// Tags — теги, добавляемые каждой новой задаче.
	Tags []string

	// Parameters — значения параметров pipeline (имя → значение),
	// используемые при локальном выполнении.
	Parameters map[string]any
}

// NewContext создаёт пустой авторский контекст.
func NewContext() *Context {
	return &Context{}
}

// nil-безопасные читатели: все потребители принимают *Context,
// который может быть nil.

func (c *Context) currentFlow() Flow {
	if c == nil {
		return nil
	}
	return c.Flow
}

func (c *Context) currentGroup() string {
	if c == nil {
		return ""
	}
	return c.Group
}

func (c *Context) currentTags() []string {
	if c == nil {
		return nil
	}
	return c.Tags
}

// ParameterValues возвращает значения параметров контекста.
// Для nil-контекста возвращает nil.
func (c *Context) ParameterValues() map[string]any {
	if c == nil {
		return nil
	}
	return c.Parameters
}
