// Konveyer CLI — инструмент командной строки для управления
// pipelines, runs и schedules.
//
// Использование:
//
//	konveyer [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	pipeline  Управление pipelines
//	run       Управление runs
//	schedule  Управление schedules
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/Konveyer/cli"
	"github.com/shaiso/Konveyer/core"
)

// version задаётся через ldflags при сборке.
var version = "dev"

// taskRegistry наполняется при сборке собственного бинаря поверх
// пакетов Konveyer. Базовый бинарь выполняет документы только из
// Parameter и GetItem задач.
var taskRegistry = core.Registry{}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "konveyer",
		Short:         "Konveyer CLI — dataflow pipeline tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPipelineCmd(outputFn),
		cli.NewRunCmd(outputFn, taskRegistry),
		cli.NewScheduleCmd(outputFn),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
