package core

import "fmt"

// Flow — владелец узлов и рёбер графа зависимостей.
//
// Авторский слой не различает реализации: Graph из этого пакета —
// стандартная, но вызывающий код может подставить свою.
type Flow interface {
	// AddTask идемпотентно добавляет задачу в множество узлов.
	// Повторное добавление той же задачи — no-op.
	AddTask(s Spec)

	// SetDependencies создаёт рёбра для задачи и возвращает Result,
	// привязанный к паре (задача, flow).
	SetDependencies(d Dependencies) (*Result, error)
}

// Dependencies — запрос на создание рёбер для одной задачи.
type Dependencies struct {
	// Task — задача, для которой создаются рёбра.
	Task Spec

	// Upstream — задачи, которые должны завершиться раньше
	// (чистый порядок, без передачи данных).
	Upstream []Spec

	// Downstream — задачи, которые должны выполняться позже.
	Downstream []Spec

	// KeywordResults — привязка имя аргумента → значение.
	// Значение-задача (Spec или *Result) становится ребром данных;
	// любое другое значение сохраняется как константа.
	KeywordResults map[string]any

	// SkipValidation — не проверять граф после добавления рёбер.
	// Нулевое значение означает «валидация включена».
	SkipValidation bool
}

// Edge — ребро графа зависимостей.
type Edge struct {
	// Upstream — задача-источник.
	Upstream Spec

	// Downstream — задача-приёмник.
	Downstream Spec

	// Key — имя аргумента, в который передаётся результат Upstream.
	// Пустая строка — чистое ребро порядка без передачи данных.
	Key string
}

// Graph — стандартная реализация Flow.
//
// Узлы хранятся в порядке добавления; членство проверяется
// по идентичности (указателю) задачи. Мутации не синхронизированы:
// построение графа однопоточно.
type Graph struct {
	tasks     []Spec
	members   map[Spec]struct{}
	edges     []Edge
	constants map[Spec]map[string]any
}

// NewGraph создаёт пустой граф.
func NewGraph() *Graph {
	return &Graph{
		members:   make(map[Spec]struct{}),
		constants: make(map[Spec]map[string]any),
	}
}

// AddTask идемпотентно добавляет задачу в множество узлов.
func (g *Graph) AddTask(s Spec) {
	if s == nil {
		return
	}
	if _, ok := g.members[s]; ok {
		return
	}
	g.members[s] = struct{}{}
	g.tasks = append(g.tasks, s)
}

// Contains проверяет членство задачи в графе.
func (g *Graph) Contains(s Spec) bool {
	_, ok := g.members[s]
	return ok
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.tasks)
}

// Tasks возвращает задачи в порядке добавления.
func (g *Graph) Tasks() []Spec {
	tasks := make([]Spec, len(g.tasks))
	copy(tasks, g.tasks)
	return tasks
}

// Edges возвращает копию всех рёбер.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// UpstreamOf возвращает рёбра, входящие в задачу.
func (g *Graph) UpstreamOf(s Spec) []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if e.Downstream == s {
			edges = append(edges, e)
		}
	}
	return edges
}

// DownstreamOf возвращает рёбра, исходящие из задачи.
func (g *Graph) DownstreamOf(s Spec) []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if e.Upstream == s {
			edges = append(edges, e)
		}
	}
	return edges
}

// Constants возвращает константные привязки задачи (имя аргумента →
// литеральное значение).
func (g *Graph) Constants(s Spec) map[string]any {
	return g.constants[s]
}

// SetDependencies создаёт рёбра для задачи.
//
// Все упомянутые задачи добавляются в граф идемпотентно. Значения
// KeywordResults классифицируются здесь: Spec и *Result становятся
// рёбрами данных, остальное — константами задачи.
func (g *Graph) SetDependencies(d Dependencies) (*Result, error) {
	if d.Task == nil {
		return nil, ErrNilTask
	}
	g.AddTask(d.Task)

	for _, up := range d.Upstream {
		if up == nil {
			return nil, fmt.Errorf("upstream: %w", ErrNilTask)
		}
		g.AddTask(up)
		g.addEdge(Edge{Upstream: up, Downstream: d.Task})
	}

	for _, down := range d.Downstream {
		if down == nil {
			return nil, fmt.Errorf("downstream: %w", ErrNilTask)
		}
		g.AddTask(down)
		g.addEdge(Edge{Upstream: d.Task, Downstream: down})
	}

	for key, value := range d.KeywordResults {
		switch v := value.(type) {
		case Spec:
			g.AddTask(v)
			g.addEdge(Edge{Upstream: v, Downstream: d.Task, Key: key})
		case *Result:
			g.AddTask(v.Task)
			g.addEdge(Edge{Upstream: v.Task, Downstream: d.Task, Key: key})
		default:
			g.setConstant(d.Task, key, value)
		}
	}

	if !d.SkipValidation {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}

	return NewResult(d.Task, g), nil
}

// addEdge добавляет ребро с защитой от дубликатов.
func (g *Graph) addEdge(e Edge) {
	for _, existing := range g.edges {
		if existing == e {
			return
		}
	}
	g.edges = append(g.edges, e)
}

// setConstant сохраняет литеральную привязку аргумента задачи.
func (g *Graph) setConstant(s Spec, key string, value any) {
	m, ok := g.constants[s]
	if !ok {
		m = make(map[string]any)
		g.constants[s] = m
	}
	m[key] = value
}

// Validate проверяет граф: уникальность slug и отсутствие циклов.
func (g *Graph) Validate() error {
	slugs := make(map[string]Spec, len(g.tasks))
	for _, s := range g.tasks {
		slug := s.Describe().Slug
		if slug == "" {
			continue
		}
		if other, ok := slugs[slug]; ok && other != s {
			return fmt.Errorf("%w: %q", ErrDuplicateSlug, slug)
		}
		slugs[slug] = s
	}

	if _, err := g.Sorted(); err != nil {
		return err
	}
	return nil
}

// Sorted возвращает задачи в топологическом порядке (алгоритм Кана).
// Порядок стабилен: при равной готовности раньше идёт раньше добавленная
// задача. Возвращает ErrCyclicDependency при цикле.
func (g *Graph) Sorted() ([]Spec, error) {
	// Параллельные рёбра (разные Key между той же парой) считаются
	// одной зависимостью.
	adjacent := make(map[Spec][]Spec, len(g.tasks))
	inDegree := make(map[Spec]int, len(g.tasks))
	linked := make(map[[2]Spec]struct{}, len(g.edges))

	for _, e := range g.edges {
		pair := [2]Spec{e.Upstream, e.Downstream}
		if _, ok := linked[pair]; ok {
			continue
		}
		linked[pair] = struct{}{}
		adjacent[e.Upstream] = append(adjacent[e.Upstream], e.Downstream)
		inDegree[e.Downstream]++
	}

	queue := make([]Spec, 0, len(g.tasks))
	for _, s := range g.tasks {
		if inDegree[s] == 0 {
			queue = append(queue, s)
		}
	}

	order := make([]Spec, 0, len(g.tasks))
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		order = append(order, s)

		for _, next := range adjacent[s] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.tasks) {
		return nil, ErrCyclicDependency
	}
	return order, nil
}
