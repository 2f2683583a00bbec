package core

import (
	"context"
	"testing"
)

func TestNewResult_EnsuresRegistration(t *testing.T) {
	g := NewGraph()
	task := demoTask("fetch", ParamList{})

	res := NewResult(task, g)

	if !g.Contains(task) {
		t.Error("NewResult must register the task")
	}
	if res.Task != Spec(task) || res.Flow != Flow(g) {
		t.Error("result should carry the (task, flow) pair")
	}
}

func TestNewResult_NilFlow(t *testing.T) {
	res := NewResult(demoTask("solo", ParamList{}), nil)

	if res.Flow == nil {
		t.Fatal("nil flow should be replaced with a fresh graph")
	}
}

func TestResult_Index(t *testing.T) {
	g := NewGraph()
	parent := demoTask("rows", ParamList{})
	parentRes := NewResult(parent, g)

	itemRes, err := parentRes.Index(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Имя производной задачи детерминировано выводится из родителя.
	info := itemRes.Task.Describe()
	if info.Name != "rows[2]" {
		t.Errorf("expected name rows[2], got %q", info.Name)
	}
	if info.Type != "GetItem" {
		t.Errorf("expected type GetItem, got %q", info.Type)
	}

	// Производная задача стоит downstream от родителя в том же flow.
	if itemRes.Flow != Flow(g) {
		t.Error("derived result should live in the parent flow")
	}
	edges := g.UpstreamOf(itemRes.Task)
	if len(edges) != 1 || edges[0].Upstream != Spec(parent) {
		t.Fatalf("expected one edge from parent, got %+v", edges)
	}
	if edges[0].Key != "source" {
		t.Errorf("expected edge key source, got %q", edges[0].Key)
	}
}

func TestResult_SetDependencies(t *testing.T) {
	g := NewGraph()
	task := demoTask("load", ParamList{})
	before := demoTask("before", ParamList{})
	after := demoTask("after", ParamList{})

	res := NewResult(task, g)

	if err := res.SetDependencies([]Spec{before}, []Spec{after}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if up := g.UpstreamOf(task); len(up) != 1 || up[0].Upstream != Spec(before) {
		t.Errorf("expected upstream edge from before, got %+v", up)
	}
	if down := g.DownstreamOf(task); len(down) != 1 || down[0].Downstream != Spec(after) {
		t.Errorf("expected downstream edge to after, got %+v", down)
	}
}

func TestGetItem_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		index    any
		source   any
		wantKind OutcomeKind
		want     any
	}{
		{
			name:     "срез по числу",
			index:    1,
			source:   []any{"a", "b", "c"},
			wantKind: OutcomeSuccess,
			want:     "b",
		},
		{
			name:     "map по строке",
			index:    "count",
			source:   map[string]any{"count": 7},
			wantKind: OutcomeSuccess,
			want:     7,
		},
		{
			name:     "выход за границы",
			index:    5,
			source:   []any{"a"},
			wantKind: OutcomeFail,
		},
		{
			name:     "отсутствующий ключ",
			index:    "missing",
			source:   map[string]any{},
			wantKind: OutcomeFail,
		},
		{
			name:     "неиндексируемое значение",
			index:    0,
			source:   42,
			wantKind: OutcomeFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewGetItem(tt.index, "demo")

			out := item.Evaluate(context.Background(), Inputs{
				Args: map[string]any{"source": tt.source},
			})
			if out.Kind != tt.wantKind {
				t.Fatalf("expected %s, got %s (reason: %s)", tt.wantKind, out.Kind, out.Reason)
			}
			if out.IsSuccess() && out.Value != tt.want {
				t.Errorf("expected %v, got %v", tt.want, out.Value)
			}
		})
	}
}
