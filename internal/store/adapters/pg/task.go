package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
)

// ─── TaskRepository ───

type taskRepo struct {
	pool *pgxpool.Pool
}

const taskColumns = `
	id, tenant_task_id, user_id, runninghub_task_id, task_type, status,
	created_at, completed_at, result_data, storage_paths, error_message
`

func (r *taskRepo) Create(ctx context.Context, userID int64, runninghubTaskID, taskType string) (*repository.TaskRecord, error) {
	if userID <= 0 || runninghubTaskID == "" {
		return nil, repository.ErrInvalidInput
	}

	query := `
		INSERT INTO tasks (tenant_task_id, user_id, runninghub_task_id, task_type, status)
		VALUES ($1, $2, $3, $4, 'PENDING')
		RETURNING ` + taskColumns
	rec, err := scanTask(r.pool.QueryRow(ctx, query, newTenantTaskID(), userID, runninghubTaskID, taskType))
	if err != nil {
		return nil, fmt.Errorf("pg: create task: %w", err)
	}
	return rec, nil
}

func (r *taskRepo) GetByTenantTaskID(ctx context.Context, tenantTaskID string) (*repository.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_task_id = $1`
	rec, err := scanTask(r.pool.QueryRow(ctx, query, tenantTaskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get task: %w", err)
	}
	return rec, nil
}

func (r *taskRepo) MarkSuccess(ctx context.Context, tenantTaskID string, resultData json.RawMessage, storagePaths []string) error {
	if len(resultData) == 0 {
		resultData = json.RawMessage("null")
	}
	if storagePaths == nil {
		storagePaths = []string{}
	}
	const query = `
		UPDATE tasks
		SET status = 'SUCCESS', completed_at = NOW(),
		    result_data = $2, storage_paths = $3, error_message = ''
		WHERE tenant_task_id = $1 AND status = 'PENDING'
	`
	return r.complete(ctx, tenantTaskID, query, resultData, storagePaths)
}

func (r *taskRepo) MarkFailed(ctx context.Context, tenantTaskID string, errorMessage string) error {
	const query = `
		UPDATE tasks
		SET status = 'FAILED', completed_at = NOW(), error_message = $2
		WHERE tenant_task_id = $1 AND status = 'PENDING'
	`
	return r.complete(ctx, tenantTaskID, query, errorMessage)
}

// complete ejecuta un UPDATE condicionado a status PENDING. Si no afectó
// filas, distingue record inexistente de record ya terminal con un
// SELECT posterior.
func (r *taskRepo) complete(ctx context.Context, tenantTaskID, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, append([]any{tenantTaskID}, args...)...)
	if err != nil {
		return fmt.Errorf("pg: complete task: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM tasks WHERE tenant_task_id = $1`, tenantTaskID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("pg: complete task: %w", err)
	}
	return repository.ErrTerminal
}

func (r *taskRepo) ListByUser(ctx context.Context, userID int64, filter repository.ListTasksFilter) ([]repository.TaskRecord, error) {
	filter.Normalize()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`)
	args := []any{userID}
	if filter.TaskType != "" {
		args = append(args, filter.TaskType)
		sb.WriteString(fmt.Sprintf(` AND task_type = $%d`, len(args)))
	}
	args = append(args, filter.Limit)
	sb.WriteString(fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)))
	args = append(args, filter.Offset)
	sb.WriteString(fmt.Sprintf(` OFFSET $%d`, len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pg: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []repository.TaskRecord{}
	for rows.Next() {
		rec, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("pg: scan task: %w", err)
		}
		tasks = append(tasks, *rec)
	}
	return tasks, rows.Err()
}

func scanTask(row pgx.Row) (*repository.TaskRecord, error) {
	var rec repository.TaskRecord
	var errMsg *string
	err := row.Scan(
		&rec.ID, &rec.TenantTaskID, &rec.UserID, &rec.RunninghubTaskID,
		&rec.TaskType, &rec.Status, &rec.CreatedAt, &rec.CompletedAt,
		&rec.ResultData, &rec.StoragePaths, &errMsg,
	)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		rec.ErrorMessage = *errMsg
	}
	return &rec, nil
}

// ─── UsageRepository ───

type usageRepo struct {
	pool *pgxpool.Pool
}

func (r *usageRepo) Append(ctx context.Context, event repository.UsageEvent) error {
	if event.TenantID <= 0 || event.Endpoint == "" {
		return repository.ErrInvalidInput
	}
	if event.RequestCount <= 0 {
		event.RequestCount = 1
	}

	const query = `
		INSERT INTO api_usage (tenant_id, user_id, endpoint, request_count)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, event.TenantID, event.UserID, event.Endpoint, event.RequestCount); err != nil {
		return fmt.Errorf("pg: append usage: %w", err)
	}
	return nil
}

func (r *usageRepo) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]repository.UsageEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
		SELECT id, tenant_id, user_id, endpoint, request_count, created_at
		FROM api_usage WHERE tenant_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("pg: list usage: %w", err)
	}
	defer rows.Close()

	events := []repository.UsageEvent{}
	for rows.Next() {
		var e repository.UsageEvent
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &e.Endpoint, &e.RequestCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("pg: scan usage: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
