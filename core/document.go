package core

import "sort"

// Document — сериализуемое представление графа.
//
// Задачи перечислены в порядке добавления в граф; рёбра и константы
// ссылаются на задачи по позиции в этом списке. Точный формат
// хранения (JSONB, файл) — ответственность внешнего слоя.
type Document struct {
	// Tasks — описательные записи задач.
	Tasks []Info `json:"tasks"`

	// Edges — рёбра графа.
	Edges []DocumentEdge `json:"edges,omitempty"`

	// Constants — литеральные привязки аргументов.
	Constants []DocumentConstant `json:"constants,omitempty"`
}

// DocumentEdge — ребро в терминах позиций задач.
type DocumentEdge struct {
	// Upstream — позиция задачи-источника в Tasks.
	Upstream int `json:"upstream"`

	// Downstream — позиция задачи-приёмника в Tasks.
	Downstream int `json:"downstream"`

	// Key — имя аргумента; пустое для рёбер чистого порядка.
	Key string `json:"key,omitempty"`
}

// DocumentConstant — литеральная привязка аргумента задачи.
type DocumentConstant struct {
	// Task — позиция задачи в Tasks.
	Task int `json:"task"`

	// Key — имя аргумента.
	Key string `json:"key"`

	// Value — литеральное значение.
	Value any `json:"value"`
}

// Document строит сериализуемое представление графа.
// Представление детерминировано для одного и того же порядка
// построения графа.
func (g *Graph) Document() Document {
	position := make(map[Spec]int, len(g.tasks))
	doc := Document{Tasks: make([]Info, len(g.tasks))}

	for i, s := range g.tasks {
		position[s] = i
		doc.Tasks[i] = s.Describe()
	}

	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, DocumentEdge{
			Upstream:   position[e.Upstream],
			Downstream: position[e.Downstream],
			Key:        e.Key,
		})
	}

	for s, consts := range g.constants {
		keys := make([]string, 0, len(consts))
		for k := range consts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			doc.Constants = append(doc.Constants, DocumentConstant{
				Task:  position[s],
				Key:   k,
				Value: consts[k],
			})
		}
	}

	// Константы разных задач сортируются по позиции, чтобы документ
	// не зависел от порядка обхода map.
	sort.SliceStable(doc.Constants, func(i, j int) bool {
		return doc.Constants[i].Task < doc.Constants[j].Task
	})

	return doc
}
