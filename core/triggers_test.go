package core

import "testing"

func TestTriggers(t *testing.T) {
	a := demoTask("a", ParamList{})
	b := demoTask("b", ParamList{})

	states := func(sa, sb State) map[Spec]State {
		return map[Spec]State{a: sa, b: sb}
	}

	tests := []struct {
		name     string
		trigger  Trigger
		upstream map[Spec]State
		want     bool
	}{
		{"all_successful: все успешны", AllSuccessful, states(StateSucceeded, StateSucceeded), true},
		{"all_successful: одна неудача", AllSuccessful, states(StateSucceeded, StateFailed), false},
		{"all_successful: корень без зависимостей", AllSuccessful, nil, true},

		{"all_finished: финальные состояния", AllFinished, states(StateSucceeded, StateFailed), true},
		{"all_finished: есть незавершённая", AllFinished, states(StateSucceeded, StateRunning), false},

		{"all_failed: все неудачны", AllFailed, states(StateFailed, StateFailed), true},
		{"all_failed: есть успех", AllFailed, states(StateFailed, StateSucceeded), false},
		{"all_failed: без зависимостей", AllFailed, nil, false},

		{"any_successful: один успех", AnySuccessful, states(StateFailed, StateSucceeded), true},
		{"any_successful: без успехов", AnySuccessful, states(StateFailed, StateFailed), false},
		{"any_successful: без зависимостей", AnySuccessful, nil, true},

		{"any_failed: одна неудача", AnyFailed, states(StateSucceeded, StateFailed), true},
		{"any_failed: все успешны", AnyFailed, states(StateSucceeded, StateSucceeded), false},

		{"manual_only: никогда", ManualOnly, states(StateSucceeded, StateSucceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trigger.Ready(tt.upstream); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTriggerByName(t *testing.T) {
	for _, name := range []string{
		"all_successful", "all_finished", "all_failed",
		"any_successful", "any_failed", "manual_only",
	} {
		if _, ok := TriggerByName(name); !ok {
			t.Errorf("builtin trigger %q not found", name)
		}
	}

	if _, ok := TriggerByName("custom"); ok {
		t.Error("unknown trigger name should not resolve")
	}
}
