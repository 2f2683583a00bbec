package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
)

// collectSink — тестовый приёмник событий.
type collectSink struct {
	events []Event
}

func (s *collectSink) Publish(ctx context.Context, e Event) error {
	s.events = append(s.events, e)
	return nil
}

func succeedWith(value any) core.RunFunc {
	return func(ctx context.Context, in core.Inputs) core.Outcome {
		return core.Success(value)
	}
}

func TestRunner_Chain(t *testing.T) {
	g := core.NewGraph()
	actx := &core.Context{Flow: g}

	limit := core.NewParameter(actx, "limit", core.ParameterOptions{Default: 10})
	fetch := core.New(actx, core.Options{
		Name:   "fetch",
		Params: core.Params("limit"),
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Success(in.Args["limit"].(int) * 2)
		},
	})

	if _, err := core.Call(actx, fetch, core.CallArgs{Kwargs: map[string]any{"limit": limit}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := New(Config{}).Run(context.Background(), g, map[string]any{"limit": 21})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.State != core.StateSucceeded {
		t.Fatalf("expected SUCCEEDED run, got %s", report.State)
	}
	tr, ok := report.Result("fetch")
	if !ok {
		t.Fatal("fetch report missing")
	}
	if tr.Value != 42 {
		t.Errorf("expected 42, got %v", tr.Value)
	}
}

func TestRunner_ConstantsArePassed(t *testing.T) {
	g := core.NewGraph()
	task := core.New(nil, core.Options{
		Name:   "echo",
		Params: core.Params("v"),
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Success(in.Args["v"])
		},
	})

	if _, err := core.Call(nil, task, core.CallArgs{Args: []any{"hello"}, Flow: g}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr, _ := report.Result("echo"); tr.Value != "hello" {
		t.Errorf("expected hello, got %v", tr.Value)
	}
}

func TestRunner_RetryThenSuccess(t *testing.T) {
	g := core.NewGraph()
	var calls atomic.Int32

	task := core.New(nil, core.Options{
		Name:       "flaky",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			if calls.Add(1) < 3 {
				return core.Fail("transient")
			}
			return core.Success("ok")
		},
	})
	g.AddTask(task)

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, _ := report.Result("flaky")
	if tr.State != core.StateSucceeded {
		t.Fatalf("expected SUCCEEDED after retries, got %s (%s)", tr.State, tr.Reason)
	}
	if tr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", tr.Attempts)
	}
}

func TestRunner_RetriesExhausted(t *testing.T) {
	g := core.NewGraph()
	task := core.New(nil, core.Options{
		Name:       "broken",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Fail("always")
		},
	})
	g.AddTask(task)

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.State != core.StateFailed {
		t.Fatalf("expected FAILED run, got %s", report.State)
	}
	tr, _ := report.Result("broken")
	if tr.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", tr.Attempts)
	}
}

func TestRunner_Timeout(t *testing.T) {
	g := core.NewGraph()
	task := core.New(nil, core.Options{
		Name:    "slow",
		Timeout: 10 * time.Millisecond,
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			select {
			case <-time.After(time.Second):
				return core.Success("too late")
			case <-ctx.Done():
				return core.Failf("interrupted: %v", ctx.Err())
			}
		},
	})
	g.AddTask(task)

	start := time.Now()
	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout did not interrupt the task, took %s", elapsed)
	}

	if tr, _ := report.Result("slow"); tr.State != core.StateFailed {
		t.Errorf("expected FAILED, got %s", tr.State)
	}
}

func TestRunner_DownstreamSkippedAfterFailure(t *testing.T) {
	g := core.NewGraph()
	fail := core.New(nil, core.Options{
		Name: "fail",
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Fail("boom")
		},
	})
	next := core.New(nil, core.Options{Name: "next", Run: succeedWith("unreachable")})
	cleanup := core.New(nil, core.Options{
		Name:    "cleanup",
		Trigger: core.AnyFailed,
		Run:     succeedWith("cleaned"),
	})

	mustDeps := func(d core.Dependencies) {
		t.Helper()
		if _, err := g.SetDependencies(d); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	mustDeps(core.Dependencies{Task: next, Upstream: []core.Spec{fail}})
	mustDeps(core.Dependencies{Task: cleanup, Upstream: []core.Spec{fail}})

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Обычная задача пропускается, задача-обработчик выполняется.
	if tr, _ := report.Result("next"); tr.State != core.StateSkipped {
		t.Errorf("expected next SKIPPED, got %s", tr.State)
	}
	if tr, _ := report.Result("cleanup"); tr.State != core.StateSucceeded {
		t.Errorf("expected cleanup SUCCEEDED, got %s (%s)", tr.State, tr.Reason)
	}
}

func TestRunner_PropagateSkip(t *testing.T) {
	g := core.NewGraph()
	gate := core.New(nil, core.Options{
		Name:          "gate",
		PropagateSkip: true,
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Skip("feature disabled")
		},
	})
	// Триггер all_finished сам по себе пропустил бы только незавершённые
	// upstream задачи; пропуск приходит через propagate_skip.
	next := core.New(nil, core.Options{
		Name:    "next",
		Trigger: core.AllFinished,
		Run:     succeedWith("x"),
	})

	if _, err := g.SetDependencies(core.Dependencies{Task: next, Upstream: []core.Spec{gate}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr, _ := report.Result("next"); tr.State != core.StateSkipped {
		t.Errorf("expected next SKIPPED via propagate_skip, got %s", tr.State)
	}
}

func TestRunner_WaitParksDownstream(t *testing.T) {
	g := core.NewGraph()
	wait := core.New(nil, core.Options{
		Name: "wait",
		Run: func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Wait("external data not ready")
		},
	})
	next := core.New(nil, core.Options{Name: "next", Run: succeedWith("x")})

	if _, err := g.SetDependencies(core.Dependencies{Task: next, Upstream: []core.Spec{wait}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.State != core.StateWaiting {
		t.Fatalf("expected WAITING run, got %s", report.State)
	}
	if tr, _ := report.Result("next"); tr.State != core.StateWaiting {
		t.Errorf("expected next WAITING, got %s", tr.State)
	}
}

func TestRunner_MissingRequiredParameter(t *testing.T) {
	g := core.NewGraph()
	p := core.NewParameter(&core.Context{Flow: g}, "key", core.ParameterOptions{})
	_ = p

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.State != core.StateFailed {
		t.Fatalf("expected FAILED run, got %s", report.State)
	}
	tr, _ := report.Result("key")
	if tr.Reason == "" {
		t.Error("missing parameter failure should carry a descriptive reason")
	}
}

func TestRunner_IndexedResult(t *testing.T) {
	g := core.NewGraph()
	actx := &core.Context{Flow: g}

	rows := core.New(actx, core.Options{
		Name: "rows",
		Run:  succeedWith([]any{"zero", "one", "two"}),
	})

	res, err := core.Call(actx, rows, core.CallArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, err := res.Index(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := New(Config{}).Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, ok := report.Result(item.Task.Describe().Name)
	if !ok {
		t.Fatal("derived task report missing")
	}
	if tr.Value != "two" {
		t.Errorf("expected two, got %v", tr.Value)
	}
}

func TestRunner_RunWithIDKeepsGivenID(t *testing.T) {
	g := core.NewGraph()
	g.AddTask(core.New(nil, core.Options{Name: "noop", Run: succeedWith(nil)}))

	id := uuid.New()
	sink := &collectSink{}

	report, err := New(Config{Sink: sink}).RunWithID(context.Background(), id, g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RunID != id {
		t.Errorf("expected run id %s, got %s", id, report.RunID)
	}
	for _, e := range sink.events {
		if e.RunID != id {
			t.Errorf("event carries run id %s, want %s", e.RunID, id)
		}
	}
}

func TestRunner_EventsEmitted(t *testing.T) {
	g := core.NewGraph()
	task := core.New(nil, core.Options{Name: "emit", Run: succeedWith(1)})
	g.AddTask(task)

	sink := &collectSink{}
	if _, err := New(Config{Sink: sink}).Run(context.Background(), g, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected RUNNING and SUCCEEDED events, got %d", len(sink.events))
	}
	if sink.events[0].State != core.StateRunning || sink.events[1].State != core.StateSucceeded {
		t.Errorf("unexpected event states: %s, %s", sink.events[0].State, sink.events[1].State)
	}
}
