package core

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	task := New(nil, Options{})

	if task.Name() != "Task" {
		t.Errorf("expected default name Task, got %q", task.Name())
	}

	info := task.Describe()
	if info.Type != "Task" {
		t.Errorf("expected type Task, got %q", info.Type)
	}
	if info.MaxRetries != 0 {
		t.Errorf("expected 0 max retries, got %d", info.MaxRetries)
	}
	if info.RetryDelayMs != time.Minute.Milliseconds() {
		t.Errorf("expected 1m retry delay, got %dms", info.RetryDelayMs)
	}
	if info.TimeoutMs != 0 {
		t.Errorf("expected no timeout, got %dms", info.TimeoutMs)
	}
	if info.Trigger != AllSuccessful.Name {
		t.Errorf("expected all_successful trigger, got %q", info.Trigger)
	}
	if info.Checkpoint {
		t.Error("checkpoint should default to false")
	}
	if info.Required != nil {
		t.Error("base task info should not carry the required field")
	}
}

func TestNew_NameDefaultsToTypeName(t *testing.T) {
	task := New(nil, Options{TypeName: "Extract"})

	if task.Name() != "Extract" {
		t.Errorf("expected name Extract, got %q", task.Name())
	}
	if task.Describe().Type != "Extract" {
		t.Errorf("expected type Extract, got %q", task.Describe().Type)
	}
}

func TestNew_RegistersIntoContextFlow(t *testing.T) {
	g := NewGraph()
	actx := &Context{Flow: g}

	task := New(actx, Options{Name: "extract"})

	if !g.Contains(task) {
		t.Error("task should be registered into the context flow")
	}
	if g.Size() != 1 {
		t.Errorf("expected 1 node, got %d", g.Size())
	}
}

func TestNew_TagSnapshot(t *testing.T) {
	actx := &Context{Tags: []string{"etl"}}

	task := New(actx, Options{Name: "extract", Tags: []string{"daily", "etl"}})

	// Изменение контекста после конструирования не должно
	// менять уже снятый набор тегов.
	actx.Tags = append(actx.Tags, "late")

	want := []string{"daily", "etl"}
	if got := task.Tags(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected tags %v, got %v", want, got)
	}
}

func TestNew_GroupFromContext(t *testing.T) {
	actx := &Context{Group: "ingest"}

	if got := New(actx, Options{}).Group(); got != "ingest" {
		t.Errorf("expected group ingest, got %q", got)
	}
	if got := New(actx, Options{Group: "export"}).Group(); got != "export" {
		t.Errorf("explicit group should win, got %q", got)
	}
}

func TestNew_UnnamedCustomTriggerIsKept(t *testing.T) {
	// AllSuccessful вернул бы true для пустого upstream; пользовательский
	// предикат различим по противоположному ответу.
	never := Trigger{Ready: func(upstream map[Spec]State) bool { return false }}

	task := New(nil, Options{Name: "gate", Trigger: never})

	if task.Trigger().Ready(map[Spec]State{}) {
		t.Error("custom trigger should survive construction even without a name")
	}
	if got := task.Describe().Trigger; got != "" {
		t.Errorf("unnamed trigger should serialize empty, got %q", got)
	}
}

func TestTask_InputsOrder(t *testing.T) {
	task := New(nil, Options{Params: Params("a", "b").WithOptional("c")})

	want := []string{"a", "b", "c"}
	if got := task.Inputs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTask_DescribeIsPure(t *testing.T) {
	task := New(nil, Options{Name: "extract", Slug: "extract-1"})

	first := task.Describe()
	second := task.Describe()

	if !reflect.DeepEqual(first, second) {
		t.Error("Describe should return the same record every time")
	}
}

func TestTask_EvaluateWithoutRunFails(t *testing.T) {
	task := New(nil, Options{Name: "empty"})

	out := task.Evaluate(context.Background(), Inputs{})
	if out.Kind != OutcomeFail {
		t.Fatalf("expected FAIL outcome, got %s", out.Kind)
	}
}

func TestTask_EvaluateUsesRunFunc(t *testing.T) {
	task := New(nil, Options{
		Name:   "double",
		Params: Params("x"),
		Run: func(ctx context.Context, in Inputs) Outcome {
			return Success(in.Args["x"].(int) * 2)
		},
	})

	out := task.Evaluate(context.Background(), Inputs{Args: map[string]any{"x": 21}})
	if !out.IsSuccess() || out.Value != 42 {
		t.Fatalf("expected Success(42), got %+v", out)
	}
}
