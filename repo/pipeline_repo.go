package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Konveyer/core"
)

// Pipeline — сохранённый граф задач.
type Pipeline struct {
	// ID — идентификатор pipeline.
	ID uuid.UUID

	// Name — уникальное имя.
	Name string

	// Description — описание для людей.
	Description string

	// Document — сериализованный граф (JSONB).
	Document core.Document

	// CreatedAt, UpdatedAt — временные метки записи.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PipelineRepo — репозиторий pipelines.
type PipelineRepo struct {
	pool *pgxpool.Pool
}

// NewPipelineRepo создаёт PipelineRepo.
func NewPipelineRepo(pool *pgxpool.Pool) *PipelineRepo {
	return &PipelineRepo{pool: pool}
}

// Create сохраняет новый pipeline.
func (r *PipelineRepo) Create(ctx context.Context, p *Pipeline) error {
	docJSON, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	query := `
		INSERT INTO pipelines (id, name, description, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		nullString(p.Description),
		docJSON,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

// GetByID возвращает pipeline по ID.
func (r *PipelineRepo) GetByID(ctx context.Context, id uuid.UUID) (*Pipeline, error) {
	query := `
		SELECT id, name, description, document, created_at, updated_at
		FROM pipelines
		WHERE id = $1
	`
	return r.scanPipeline(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает pipeline по имени.
func (r *PipelineRepo) GetByName(ctx context.Context, name string) (*Pipeline, error) {
	query := `
		SELECT id, name, description, document, created_at, updated_at
		FROM pipelines
		WHERE name = $1
	`
	return r.scanPipeline(r.pool.QueryRow(ctx, query, name))
}

// Exists проверяет существование pipeline.
// Реализует scheduler.PipelineStore.
func (r *PipelineRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pipelines WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pipeline exists: %w", err)
	}
	return exists, nil
}

// Document возвращает сохранённый граф pipeline.
// Реализует worker.PipelineStore: отсутствие pipeline — не ошибка.
func (r *PipelineRepo) Document(ctx context.Context, id uuid.UUID) (core.Document, bool, error) {
	p, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return core.Document{}, false, nil
	}
	if err != nil {
		return core.Document{}, false, err
	}
	return p.Document, true, nil
}

// List возвращает все pipelines, новые первыми.
func (r *PipelineRepo) List(ctx context.Context) ([]Pipeline, error) {
	query := `
		SELECT id, name, description, document, created_at, updated_at
		FROM pipelines
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []Pipeline
	for rows.Next() {
		p, err := scanPipelineRow(rows)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, *p)
	}
	return pipelines, rows.Err()
}

// Update сохраняет изменённый pipeline.
func (r *PipelineRepo) Update(ctx context.Context, p *Pipeline) error {
	docJSON, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	query := `
		UPDATE pipelines
		SET name = $2, description = $3, document = $4, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, p.ID, p.Name, nullString(p.Description), docJSON)
	if err != nil {
		return fmt.Errorf("update pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет pipeline (каскадно удалит runs и schedules).
func (r *PipelineRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM pipelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PipelineRepo) scanPipeline(row pgx.Row) (*Pipeline, error) {
	p, err := scanPipelineRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanPipelineRow(row pgx.Row) (*Pipeline, error) {
	var p Pipeline
	var description *string
	var docJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&docJSON,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description != nil {
		p.Description = *description
	}
	if err := json.Unmarshal(docJSON, &p.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	return &p, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для nil-указателя (для фильтров).
func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}
