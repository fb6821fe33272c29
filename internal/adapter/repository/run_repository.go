package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/plastinin/comictranslate/internal/domain"
)

const runColumns = `id, work_item_id, source_language, target_language, extra_context, status, current_stage,
	stages, blocks, error, result_key, attempt, created_at, updated_at, completed_at`

// RunRepository реализация репозитория запусков для PostgreSQL
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository создаёт новый экземпляр RunRepository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Create создаёт новый запуск в БД
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO runs (id, work_item_id, source_language, target_language, extra_context, status,
			current_stage, stages, blocks, error, result_key, attempt, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.WorkItemID,
		run.Languages.Source,
		run.Languages.Target,
		run.ExtraContext,
		run.Status,
		run.CurrentStage,
		run.Stages,
		run.Blocks,
		nullString(run.Error),
		run.ResultKey,
		run.Attempt,
		run.CreatedAt,
		run.UpdatedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetByID возвращает запуск по ID
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

const updateRunQuery = `
	UPDATE runs
	SET status = $2, current_stage = $3, stages = $4, blocks = $5, error = $6,
		result_key = $7, attempt = $8, updated_at = $9, completed_at = $10
	WHERE id = $1`

// Update обновляет изменяемые поля запуска
func (r *RunRepository) Update(ctx context.Context, run *domain.Run) error {
	result, err := r.pool.Exec(ctx, updateRunQuery, updateArgs(run)...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}

	return nil
}

// UpdateIfStatus обновляет запуск, только если его статус в БД всё ещё from
func (r *RunRepository) UpdateIfStatus(ctx context.Context, run *domain.Run, from domain.RunState) error {
	args := append(updateArgs(run), from)

	result, err := r.pool.Exec(ctx, updateRunQuery+` AND status = $11`, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Различаем удалённую запись и изменённую параллельно
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM runs WHERE id = $1)`, run.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check run: %w", err)
		}
		if !exists {
			return domain.ErrRunNotFound
		}
		return domain.ErrRunChanged
	}

	return nil
}

func updateArgs(run *domain.Run) []any {
	return []any{
		run.ID,
		run.Status,
		run.CurrentStage,
		run.Stages,
		run.Blocks,
		nullString(run.Error),
		run.ResultKey,
		run.Attempt,
		run.UpdatedAt,
		run.CompletedAt,
	}
}

// Delete удаляет запуск из БД
func (r *RunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}

	return nil
}

// List возвращает список запусков с пагинацией и фильтрацией
func (r *RunRepository) List(ctx context.Context, filter domain.RunFilter, pagination domain.Pagination) (*domain.RunListResult, error) {
	baseQuery := `FROM runs WHERE 1=1`
	args := []any{}
	argIndex := 1

	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.WorkItemID != "" {
		baseQuery += fmt.Sprintf(" AND work_item_id = $%d", argIndex)
		args = append(args, filter.WorkItemID)
		argIndex++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, runColumns, baseQuery, argIndex, argIndex+1)

	args = append(args, pagination.Limit(), pagination.Offset())

	rows, err := r.pool.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return &domain.RunListResult{
		Runs:       runs,
		Total:      total,
		Pagination: pagination,
	}, nil
}

// scanRun читает строку в порядке runColumns
func scanRun(row pgx.Row) (*domain.Run, error) {
	run := &domain.Run{}
	var errorMsg *string // Указатель для NULL

	err := row.Scan(
		&run.ID,
		&run.WorkItemID,
		&run.Languages.Source,
		&run.Languages.Target,
		&run.ExtraContext,
		&run.Status,
		&run.CurrentStage,
		&run.Stages,
		&run.Blocks,
		&errorMsg,
		&run.ResultKey,
		&run.Attempt,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if errorMsg != nil {
		run.Error = *errorMsg
	}

	return run, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
