package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/mq"
	"github.com/shaiso/Konveyer/runner"
)

type fakeRunStore struct {
	started  []uuid.UUID
	reports  map[uuid.UUID]*runner.Report
	startErr error
}

func (s *fakeRunStore) MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started = append(s.started, id)
	return nil
}

func (s *fakeRunStore) SaveReport(ctx context.Context, id uuid.UUID, report *runner.Report) error {
	if s.reports == nil {
		s.reports = make(map[uuid.UUID]*runner.Report)
	}
	s.reports[id] = report
	return nil
}

type fakePipelineStore struct {
	docs map[uuid.UUID]core.Document
	err  error
}

func (s *fakePipelineStore) Document(ctx context.Context, id uuid.UUID) (core.Document, bool, error) {
	if s.err != nil {
		return core.Document{}, false, s.err
	}
	doc, ok := s.docs[id]
	return doc, ok, nil
}

type fakeNotifier struct {
	runs   []uuid.UUID
	states []core.State
}

func (n *fakeNotifier) NotifyRunFinished(ctx context.Context, runID, pipelineID uuid.UUID, state core.State) error {
	n.runs = append(n.runs, runID)
	n.states = append(n.states, state)
	return nil
}

// doubleDocument — документ «limit по умолчанию 10 → удвоить».
func doubleDocument(t *testing.T) core.Document {
	t.Helper()

	g := core.NewGraph()
	actx := &core.Context{Flow: g}

	limit := core.NewParameter(actx, "limit", core.ParameterOptions{Default: 10})
	double := core.New(actx, core.Options{
		Name:     "double",
		TypeName: "Double",
		Params:   core.Params("limit"),
	})
	if _, err := core.Call(actx, double, core.CallArgs{
		Kwargs: map[string]any{"limit": limit},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return g.Document()
}

func doubleRegistry() core.Registry {
	return core.Registry{
		"Double": func(ctx context.Context, in core.Inputs) core.Outcome {
			return core.Success(in.Args["limit"].(int) * 2)
		},
	}
}

func TestWorker_ExecuteRun(t *testing.T) {
	runID, pipelineID := uuid.New(), uuid.New()
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}

	w := New(Config{
		Runs:      runs,
		Pipelines: &fakePipelineStore{docs: map[uuid.UUID]core.Document{pipelineID: doubleDocument(t)}},
		Registry:  doubleRegistry(),
		Notifier:  notifier,
	})

	err := w.Execute(context.Background(), mq.RunRequestedPayload{
		RunID:      runID,
		PipelineID: pipelineID,
		Parameters: map[string]any{"limit": 21},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs.started) != 1 || runs.started[0] != runID {
		t.Errorf("expected run %s marked started, got %v", runID, runs.started)
	}

	report := runs.reports[runID]
	if report == nil {
		t.Fatal("report was not saved")
	}
	if report.RunID != runID || report.State != core.StateSucceeded {
		t.Errorf("unexpected report: id=%s state=%s", report.RunID, report.State)
	}
	if tr, ok := report.Result("double"); !ok || tr.Value != 42 {
		t.Errorf("expected double=42, got %+v", tr)
	}

	if len(notifier.states) != 1 || notifier.states[0] != core.StateSucceeded {
		t.Errorf("expected one SUCCEEDED notification, got %v", notifier.states)
	}
}

func TestWorker_UnknownPipelineFailsRun(t *testing.T) {
	runID := uuid.New()
	runs := &fakeRunStore{}
	notifier := &fakeNotifier{}

	w := New(Config{
		Runs:      runs,
		Pipelines: &fakePipelineStore{},
		Notifier:  notifier,
	})

	err := w.Execute(context.Background(), mq.RunRequestedPayload{
		RunID:      runID,
		PipelineID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs.started) != 0 {
		t.Error("unknown pipeline should not mark the run started")
	}
	if report := runs.reports[runID]; report == nil || report.State != core.StateFailed {
		t.Errorf("expected FAILED report, got %+v", report)
	}
	if len(notifier.states) != 1 || notifier.states[0] != core.StateFailed {
		t.Errorf("expected one FAILED notification, got %v", notifier.states)
	}
}

func TestWorker_UnregisteredTypeFailsRun(t *testing.T) {
	runID, pipelineID := uuid.New(), uuid.New()
	runs := &fakeRunStore{}

	w := New(Config{
		Runs:      runs,
		Pipelines: &fakePipelineStore{docs: map[uuid.UUID]core.Document{pipelineID: doubleDocument(t)}},
		Registry:  core.Registry{},
	})

	err := w.Execute(context.Background(), mq.RunRequestedPayload{
		RunID:      runID,
		PipelineID: pipelineID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report := runs.reports[runID]; report == nil || report.State != core.StateFailed {
		t.Errorf("expected FAILED report, got %+v", report)
	}
}

func TestWorker_StoreErrorRequeues(t *testing.T) {
	runs := &fakeRunStore{}
	w := New(Config{
		Runs:      runs,
		Pipelines: &fakePipelineStore{err: errors.New("db down")},
	})

	err := w.Execute(context.Background(), mq.RunRequestedPayload{
		RunID:      uuid.New(),
		PipelineID: uuid.New(),
	})
	if err == nil {
		t.Fatal("store error should be returned for redelivery")
	}
	if len(runs.reports) != 0 {
		t.Error("no report should be saved on a store error")
	}
}

func TestWorker_MalformedPayloadDropped(t *testing.T) {
	runs := &fakeRunStore{}
	w := New(Config{Runs: runs, Pipelines: &fakePipelineStore{}})

	err := w.HandleRunRequested(context.Background(), &mq.Delivery{
		Message: mq.Message{
			ID:      "m-1",
			Type:    mq.MessageTypeRunRequested,
			Payload: "not an object",
		},
	})
	if err != nil {
		t.Fatalf("malformed payload should be dropped, got %v", err)
	}
	if len(runs.started) != 0 || len(runs.reports) != 0 {
		t.Error("malformed payload should not touch the run store")
	}
}

func TestWorker_HandleRunRequested(t *testing.T) {
	runID, pipelineID := uuid.New(), uuid.New()
	runs := &fakeRunStore{}

	w := New(Config{
		Runs:      runs,
		Pipelines: &fakePipelineStore{docs: map[uuid.UUID]core.Document{pipelineID: doubleDocument(t)}},
		Registry: core.Registry{
			// После конверта JSON числа приходят как float64.
			"Double": func(ctx context.Context, in core.Inputs) core.Outcome {
				return core.Success(in.Args["limit"].(float64) * 2)
			},
		},
	})

	err := w.HandleRunRequested(context.Background(), &mq.Delivery{
		Message: mq.Message{
			ID:   "m-2",
			Type: mq.MessageTypeRunRequested,
			Payload: map[string]any{
				"run_id":      runID.String(),
				"pipeline_id": pipelineID.String(),
				"parameters":  map[string]any{"limit": 21},
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report := runs.reports[runID]
	if report == nil || report.State != core.StateSucceeded {
		t.Fatalf("expected SUCCEEDED report, got %+v", report)
	}
	if tr, ok := report.Result("double"); !ok || tr.Value != float64(42) {
		t.Errorf("expected double=42, got %+v", tr)
	}
}
