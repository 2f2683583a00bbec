package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/mq"
	"github.com/shaiso/Konveyer/repo"
	"github.com/shaiso/Konveyer/runner"
	"github.com/shaiso/Konveyer/telemetry"
	"github.com/shaiso/Konveyer/worker"
)

// NewRunCmd создаёт группу команд для управления запусками.
// Registry нужен команде work: без него выполнимы только документы
// из Parameter и GetItem задач.
func NewRunCmd(outputFn func() *Output, registry core.Registry) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs",
	}

	cmd.AddCommand(
		newRunListCmd(outputFn),
		newRunShowCmd(outputFn),
		newRunStartCmd(outputFn),
		newRunWorkCmd(registry),
	)

	return cmd
}

func newRunListCmd(outputFn func() *Output) *cobra.Command {
	var pipelineRef, state string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				filter := repo.RunFilter{
					State: core.State(state),
					Limit: limit,
				}

				if pipelineRef != "" {
					p, err := resolvePipeline(cmd.Context(), repo.NewPipelineRepo(pool), pipelineRef)
					if err != nil {
						return err
					}
					filter.PipelineID = &p.ID
				}

				runs, err := repo.NewRunRepo(pool).List(cmd.Context(), filter)
				if err != nil {
					return err
				}

				headers := []string{"ID", "PIPELINE", "STATE", "DURATION", "CREATED"}
				rows := make([][]string, len(runs))
				for i, r := range runs {
					rows[i] = []string{
						r.ID.String(),
						r.PipelineID.String(),
						out.State(r.State),
						duration(r.StartedAt, r.FinishedAt),
						r.CreatedAt.Format(time.RFC3339),
					}
				}

				out.Print(headers, rows, runs)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pipelineRef, "pipeline", "", "Filter by pipeline name or ID")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state (PENDING, RUNNING, SUCCEEDED, FAILED, WAITING)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of runs")

	return cmd
}

func newRunShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show run details with per-task results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id: %s", args[0])
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				run, err := repo.NewRunRepo(pool).GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}

				if run.Report == nil {
					out.Print(
						[]string{"ID", "STATE", "CREATED"},
						[][]string{{run.ID.String(), out.State(run.State), run.CreatedAt.Format(time.RFC3339)}},
						run,
					)
					return nil
				}

				headers := []string{"TASK", "STATE", "ATTEMPTS", "REASON"}
				rows := make([][]string, len(run.Report.Tasks))
				for i, tr := range run.Report.Tasks {
					rows[i] = []string{
						tr.Name,
						out.State(tr.State),
						fmt.Sprintf("%d", tr.Attempts),
						tr.Reason,
					}
				}

				out.Print(headers, rows, run)
				return nil
			})
		},
	}
}

func newRunStartCmd(outputFn func() *Output) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "start PIPELINE",
		Short: "Start a pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				p, err := resolvePipeline(cmd.Context(), repo.NewPipelineRepo(pool), args[0])
				if err != nil {
					return err
				}

				run := &repo.Run{
					ID:         uuid.New(),
					PipelineID: p.ID,
					State:      core.StatePending,
					Parameters: parameters,
					CreatedAt:  time.Now().UTC(),
				}

				if err := repo.NewRunRepo(pool).Create(cmd.Context(), run); err != nil {
					return err
				}

				if err := announceRun(cmd, run); err != nil {
					// Запуск уже в БД, исполнители заберут его через polling.
					out.Error(fmt.Sprintf("run created but not announced: %v", err))
				}

				out.Success(fmt.Sprintf("Run started: %s", run.ID))
				out.Print(
					[]string{"ID", "PIPELINE", "STATE"},
					[][]string{{run.ID.String(), p.Name, out.State(run.State)}},
					run,
				)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "Run parameter in key=value form (repeatable)")

	return cmd
}

func newRunWorkCmd(registry core.Registry) *cobra.Command {
	var prefetch int

	cmd := &cobra.Command{
		Use:   "work",
		Short: "Consume and execute announced runs (blocks until interrupted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := telemetry.SetupLogger("konveyer-worker")

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				conn, err := mq.NewConnection(mq.URL(), logger)
				if err != nil {
					return err
				}
				defer conn.Close()

				if err := mq.SetupTopology(cmd.Context(), conn); err != nil {
					return err
				}

				pub := mq.NewPublisher(conn, logger)
				w := worker.New(worker.Config{
					Runs:      repo.NewRunRepo(pool),
					Pipelines: repo.NewPipelineRepo(pool),
					Registry:  registry,
					Runner: runner.New(runner.Config{
						Logger: logger,
						Sink:   mq.NewEventSink(pub),
					}),
					Notifier: mq.NewRunNotifier(pub),
					Logger:   logger,
				})

				consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
					Queue:    mq.QueueRunsRequested,
					Handler:  w.HandleRunRequested,
					Prefetch: prefetch,
				})

				if err := consumer.Start(cmd.Context()); !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&prefetch, "prefetch", 1, "Number of runs consumed ahead of acknowledgement")

	return cmd
}

// announceRun публикует run.requested в RabbitMQ.
func announceRun(cmd *cobra.Command, run *repo.Run) error {
	logger := telemetry.SetupLogger("konveyer-cli")

	conn, err := mq.NewConnection(mq.URL(), logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	return mq.NewPublisher(conn, logger).PublishRunRequested(cmd.Context(), mq.RunRequestedPayload{
		RunID:      run.ID,
		PipelineID: run.PipelineID,
		Parameters: run.Parameters,
	})
}

// parseParams разбирает флаги --param key=value.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}
