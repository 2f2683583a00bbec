package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Konveyer/core"
)

func TestOutput_TableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &buf}

	out.Table(
		[]string{"ID", "STATE"},
		[][]string{{"run-1", "SUCCEEDED"}, {"run-22", "FAILED"}},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "STATE") {
		t.Errorf("unexpected header line: %q", lines[0])
	}
	// tabwriter выравнивает колонку STATE по самой широкой ячейке.
	if strings.Index(lines[1], "SUCCEEDED") != strings.Index(lines[2], "FAILED") {
		t.Errorf("state column not aligned:\n%s", buf.String())
	}
}

func TestOutput_PrintJSONMode(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{jsonMode: true, w: &buf, errW: &buf}

	out.Print([]string{"ID"}, [][]string{{"x"}}, map[string]string{"id": "x"})

	if !strings.Contains(buf.String(), `"id": "x"`) {
		t.Errorf("expected indented json, got %q", buf.String())
	}
}

func TestOutput_State(t *testing.T) {
	plain := &Output{}
	if got := plain.State(core.StateFailed); got != "FAILED" {
		t.Errorf("without color expected bare state, got %q", got)
	}

	colored := &Output{color: true}
	if got := colored.State(core.StateSucceeded); !strings.Contains(got, "SUCCEEDED") || !strings.Contains(got, ansiReset) {
		t.Errorf("expected colored state, got %q", got)
	}
	// Неизвестное состояние выводится как есть даже с цветом.
	if got := colored.State(core.State("ARCHIVED")); got != "ARCHIVED" {
		t.Errorf("unknown state should stay bare, got %q", got)
	}
}

func TestDuration(t *testing.T) {
	if got := duration(nil, nil); got != "-" {
		t.Errorf("expected - before start, got %q", got)
	}

	started := time.Now().Add(-90 * time.Second)
	finished := started.Add(65 * time.Second)
	if got := duration(&started, &finished); got != "1m5s" {
		t.Errorf("expected 1m5s, got %q", got)
	}

	// Незавершённый запуск считается от старта до сейчас.
	if got := duration(&started, nil); got == "-" || got == "0s" {
		t.Errorf("running duration should be positive, got %q", got)
	}
}
