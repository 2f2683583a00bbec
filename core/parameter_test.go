package core

import (
	"context"
	"errors"
	"testing"
)

func TestParameter_Identity(t *testing.T) {
	p := NewParameter(nil, "x", ParameterOptions{})

	if p.Name() != "x" {
		t.Errorf("expected name x, got %q", p.Name())
	}
	if p.Slug() != "x" {
		t.Errorf("slug must mirror the name, got %q", p.Slug())
	}
}

func TestParameter_NameIsWriteOnce(t *testing.T) {
	p := NewParameter(nil, "x", ParameterOptions{})

	err := p.SetName("y")
	if !errors.Is(err, ErrNameImmutable) {
		t.Fatalf("expected ErrNameImmutable, got %v", err)
	}

	var identityErr *IdentityError
	if !errors.As(err, &identityErr) {
		t.Fatalf("expected *IdentityError, got %T", err)
	}
	if p.Name() != "x" {
		t.Errorf("failed rename must not change the name, got %q", p.Name())
	}
}

func TestParameter_SlugWrites(t *testing.T) {
	p := NewParameter(nil, "x", ParameterOptions{})

	// Запись, совпадающая с именем — no-op успех: общий путь
	// конструирования пишет slug сразу после имени.
	if err := p.SetSlug("x"); err != nil {
		t.Fatalf("consistent slug write should succeed, got %v", err)
	}

	// Любое другое значение — нарушение идентичности.
	err := p.SetSlug("y")
	if !errors.Is(err, ErrSlugMismatch) {
		t.Fatalf("expected ErrSlugMismatch, got %v", err)
	}
	if p.Slug() != "x" {
		t.Errorf("slug must still mirror the name, got %q", p.Slug())
	}
}

func TestParameter_DefaultForcesOptional(t *testing.T) {
	p := NewParameter(nil, "n", ParameterOptions{Default: 5})

	if p.Required() {
		t.Error("a parameter with a default must not be required")
	}
	if p.Default() != 5 {
		t.Errorf("expected default 5, got %v", p.Default())
	}
}

func TestParameter_Evaluate(t *testing.T) {
	tests := []struct {
		name     string
		opts     ParameterOptions
		values   map[string]any
		wantKind OutcomeKind
		want     any
	}{
		{
			name:     "значение предоставлено",
			values:   map[string]any{"n": 7},
			wantKind: OutcomeSuccess,
			want:     7,
		},
		{
			name:     "обязательный без значения",
			wantKind: OutcomeFail,
		},
		{
			name:     "default при отсутствии значения",
			opts:     ParameterOptions{Default: 5},
			wantKind: OutcomeSuccess,
			want:     5,
		},
		{
			name:     "необязательный без default",
			opts:     ParameterOptions{Optional: true},
			wantKind: OutcomeSuccess,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParameter(nil, "n", tt.opts)

			out := p.Evaluate(context.Background(), Inputs{Parameters: tt.values})
			if out.Kind != tt.wantKind {
				t.Fatalf("expected %s, got %s (reason: %s)", tt.wantKind, out.Kind, out.Reason)
			}
			if out.IsSuccess() && out.Value != tt.want {
				t.Errorf("expected value %v, got %v", tt.want, out.Value)
			}
		})
	}
}

func TestParameter_DescribeExtension(t *testing.T) {
	p := NewParameter(nil, "n", ParameterOptions{Default: 5})

	info := p.Describe()
	if info.Type != "Parameter" {
		t.Errorf("expected type Parameter, got %q", info.Type)
	}
	if info.Slug != "n" {
		t.Errorf("expected slug n, got %q", info.Slug)
	}
	if info.Required == nil || *info.Required {
		t.Error("info should carry required=false")
	}
	if info.Default != 5 {
		t.Errorf("expected default 5, got %v", info.Default)
	}
}

func TestParameter_RegistersIntoContextFlow(t *testing.T) {
	g := NewGraph()
	p := NewParameter(&Context{Flow: g}, "x", ParameterOptions{})

	if !g.Contains(p) {
		t.Error("parameter should be registered into the context flow")
	}
}

func TestParameter_DuplicateNameRejectedByFlow(t *testing.T) {
	g := NewGraph()
	actx := &Context{Flow: g}

	NewParameter(actx, "x", ParameterOptions{})
	second := NewParameter(actx, "x", ParameterOptions{})

	// Уникальность slug проверяется flow при создании рёбер.
	_, err := Call(actx, second, CallArgs{})
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}
