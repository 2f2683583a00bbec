package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/Konveyer/core"
)

const ansiReset = "\033[0m"

// stateColors — цвета состояний запусков и задач в табличном выводе.
var stateColors = map[core.State]string{
	core.StateSucceeded: "\033[32m", // зелёный
	core.StateFailed:    "\033[31m", // красный
	core.StateRunning:   "\033[36m", // голубой
	core.StateWaiting:   "\033[33m", // жёлтый
	core.StateSkipped:   "\033[90m", // серый
}

// Output управляет форматированием вывода CLI.
//
// Данные идут в stdout (таблица или JSON), сообщения Success/Error —
// в stderr, чтобы не ломать pipe: konveyer run list --json | jq .
type Output struct {
	jsonMode bool
	color    bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
// Цвет включается только для терминала и уважает NO_COLOR.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		color:    isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "",
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		o.Error(fmt.Sprintf("encode json: %v", err))
	}
}

// State форматирует состояние для табличной ячейки.
func (o *Output) State(s core.State) string {
	c, ok := stateColors[s]
	if !o.color || !ok {
		return string(s)
	}
	return c + string(s) + ansiReset
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

// duration форматирует длительность выполнения запуска: "-" до старта,
// для незавершённого запуска — время от старта до сейчас.
func duration(started, finished *time.Time) string {
	if started == nil {
		return "-"
	}
	end := time.Now()
	if finished != nil {
		end = *finished
	}
	return end.Sub(*started).Round(time.Second).String()
}
