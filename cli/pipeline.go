package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/shaiso/Konveyer/core"
	"github.com/shaiso/Konveyer/repo"
)

// withPool открывает пул на время выполнения одной команды.
func withPool(ctx context.Context, fn func(pool *pgxpool.Pool) error) error {
	pool, err := repo.NewPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

// resolvePipeline находит pipeline по UUID либо по имени.
func resolvePipeline(ctx context.Context, pipelines *repo.PipelineRepo, ref string) (*repo.Pipeline, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return pipelines.GetByID(ctx, id)
	}
	return pipelines.GetByName(ctx, ref)
}

// NewPipelineCmd создаёт группу команд для управления pipelines.
func NewPipelineCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage pipelines",
	}

	cmd.AddCommand(
		newPipelineListCmd(outputFn),
		newPipelineShowCmd(outputFn),
		newPipelinePublishCmd(outputFn),
		newPipelineDeleteCmd(outputFn),
	)

	return cmd
}

func newPipelineListCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all pipelines",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				pipelines, err := repo.NewPipelineRepo(pool).List(cmd.Context())
				if err != nil {
					return err
				}

				headers := []string{"ID", "NAME", "TASKS", "CREATED"}
				rows := make([][]string, len(pipelines))
				for i, p := range pipelines {
					rows[i] = []string{
						p.ID.String(),
						p.Name,
						strconv.Itoa(len(p.Document.Tasks)),
						p.CreatedAt.Format(time.RFC3339),
					}
				}

				out.Print(headers, rows, pipelines)
				return nil
			})
		},
	}
}

func newPipelineShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show PIPELINE",
		Short: "Show pipeline details with its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				p, err := resolvePipeline(cmd.Context(), repo.NewPipelineRepo(pool), args[0])
				if err != nil {
					return err
				}

				headers := []string{"SLUG", "NAME", "TYPE", "TRIGGER", "RETRIES"}
				rows := make([][]string, len(p.Document.Tasks))
				for i, t := range p.Document.Tasks {
					rows[i] = []string{
						t.Slug,
						t.Name,
						t.Type,
						t.Trigger,
						strconv.Itoa(t.MaxRetries),
					}
				}

				out.Print(headers, rows, p)
				return nil
			})
		},
	}
}

func newPipelinePublishCmd(outputFn func() *Output) *cobra.Command {
	var name, description, documentFile string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a pipeline from a document file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			data, err := os.ReadFile(documentFile)
			if err != nil {
				return fmt.Errorf("read document file: %w", err)
			}

			var doc core.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse document file: %w", err)
			}

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				now := time.Now().UTC()
				p := &repo.Pipeline{
					ID:          uuid.New(),
					Name:        name,
					Description: description,
					Document:    doc,
					CreatedAt:   now,
					UpdatedAt:   now,
				}

				if err := repo.NewPipelineRepo(pool).Create(cmd.Context(), p); err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Pipeline published: %s", p.ID))
				out.Print(
					[]string{"ID", "NAME", "TASKS"},
					[][]string{{p.ID.String(), p.Name, strconv.Itoa(len(doc.Tasks))}},
					p,
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Pipeline name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Pipeline description")
	cmd.Flags().StringVar(&documentFile, "document-file", "", "Path to document JSON file (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("document-file")

	return cmd
}

func newPipelineDeleteCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete PIPELINE",
		Short: "Delete a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				pipelines := repo.NewPipelineRepo(pool)

				p, err := resolvePipeline(cmd.Context(), pipelines, args[0])
				if err != nil {
					return err
				}

				if err := pipelines.Delete(cmd.Context(), p.ID); err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Pipeline deleted: %s", p.ID))
				return nil
			})
		},
	}
}
