package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/shaiso/Konveyer/repo"
	"github.com/shaiso/Konveyer/scheduler"
)

// NewScheduleCmd создаёт группу команд для управления расписаниями.
func NewScheduleCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(outputFn),
		newScheduleCreateCmd(outputFn),
		newScheduleSetEnabledCmd(outputFn, "enable", true),
		newScheduleSetEnabledCmd(outputFn, "disable", false),
		newScheduleDeleteCmd(outputFn),
	)

	return cmd
}

func scheduleRows(schedules []scheduler.Schedule) ([]string, [][]string) {
	headers := []string{"ID", "NAME", "PIPELINE", "SPEC", "ENABLED", "NEXT_DUE"}
	rows := make([][]string, len(schedules))
	for i, s := range schedules {
		spec := s.CronExpr
		if s.IsInterval() {
			spec = fmt.Sprintf("every %ds", s.IntervalSec)
		}
		rows[i] = []string{
			s.ID.String(),
			s.Name,
			s.PipelineID.String(),
			spec,
			strconv.FormatBool(s.Enabled),
			s.NextDueAt.Format(time.RFC3339),
		}
	}
	return headers, rows
}

func newScheduleListCmd(outputFn func() *Output) *cobra.Command {
	var pipelineRef string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				filter := repo.ScheduleFilter{Limit: limit}

				if pipelineRef != "" {
					p, err := resolvePipeline(cmd.Context(), repo.NewPipelineRepo(pool), pipelineRef)
					if err != nil {
						return err
					}
					filter.PipelineID = &p.ID
				}

				schedules, err := repo.NewScheduleRepo(pool).List(cmd.Context(), filter)
				if err != nil {
					return err
				}

				headers, rows := scheduleRows(schedules)
				out.Print(headers, rows, schedules)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pipelineRef, "pipeline", "", "Filter by pipeline name or ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of schedules")

	return cmd
}

func newScheduleCreateCmd(outputFn func() *Output) *cobra.Command {
	var name, cronExpr, timezone string
	var intervalSec int
	var params []string

	cmd := &cobra.Command{
		Use:   "create PIPELINE",
		Short: "Create a schedule for a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if (cronExpr == "") == (intervalSec == 0) {
				return fmt.Errorf("exactly one of --cron or --interval-sec is required")
			}
			if cronExpr != "" {
				if err := scheduler.ValidateCronExpr(cronExpr); err != nil {
					return err
				}
			}

			parameters, err := parseParams(params)
			if err != nil {
				return err
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				p, err := resolvePipeline(cmd.Context(), repo.NewPipelineRepo(pool), args[0])
				if err != nil {
					return err
				}

				now := time.Now().UTC()
				sched := &scheduler.Schedule{
					ID:          uuid.New(),
					PipelineID:  p.ID,
					Name:        name,
					CronExpr:    cronExpr,
					IntervalSec: intervalSec,
					Timezone:    timezone,
					Enabled:     true,
					Parameters:  parameters,
					CreatedAt:   now,
					UpdatedAt:   now,
				}

				nextDue, err := scheduler.CalculateInitialNextDue(sched)
				if err != nil {
					return err
				}
				sched.NextDueAt = nextDue

				if err := repo.NewScheduleRepo(pool).Create(cmd.Context(), sched); err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Schedule created: %s", sched.ID))
				headers, rows := scheduleRows([]scheduler.Schedule{*sched})
				out.Print(headers, rows, sched)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Schedule name")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression (5 fields)")
	cmd.Flags().IntVar(&intervalSec, "interval-sec", 0, "Interval in seconds")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA timezone for cron expressions")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Run parameter in key=value form (repeatable)")

	return cmd
}

func newScheduleSetEnabledCmd(outputFn func() *Output, use string, enabled bool) *cobra.Command {
	short := "Enable a schedule"
	if !enabled {
		short = "Disable a schedule"
	}

	return &cobra.Command{
		Use:   use + " SCHEDULE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id: %s", args[0])
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				if err := repo.NewScheduleRepo(pool).SetEnabled(cmd.Context(), id, enabled); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Schedule %sd: %s", use, id))
				return nil
			})
		},
	}
}

func newScheduleDeleteCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete SCHEDULE_ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid schedule id: %s", args[0])
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				if err := repo.NewScheduleRepo(pool).Delete(cmd.Context(), id); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Schedule deleted: %s", id))
				return nil
			})
		},
	}
}
