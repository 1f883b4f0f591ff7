package fs

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
)

// ─── TaskRepository ───

// taskRepo persiste TaskRecord tal cual su contrato JSON: el mismo struct
// sirve de record en disco y de tipo de dominio.
type taskRepo struct{ conn *fsConnection }

func (r *taskRepo) Create(ctx context.Context, userID int64, runninghubTaskID, taskType string) (*repository.TaskRecord, error) {
	if userID <= 0 || runninghubTaskID == "" {
		return nil, repository.ErrInvalidInput
	}

	mu := r.conn.locks[colTasks]
	mu.Lock()
	defer mu.Unlock()

	tasks, err := loadCollection[repository.TaskRecord](r.conn, colTasks)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	rec := repository.TaskRecord{
		ID:               nextID(ids),
		TenantTaskID:     newTenantTaskID(),
		UserID:           userID,
		RunninghubTaskID: runninghubTaskID,
		TaskType:         taskType,
		Status:           repository.TaskStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	tasks = append(tasks, rec)

	if err := saveCollection(r.conn, colTasks, tasks); err != nil {
		return nil, err
	}
	out := rec
	return &out, nil
}

func (r *taskRepo) GetByTenantTaskID(ctx context.Context, tenantTaskID string) (*repository.TaskRecord, error) {
	mu := r.conn.locks[colTasks]
	mu.RLock()
	defer mu.RUnlock()

	tasks, err := loadCollection[repository.TaskRecord](r.conn, colTasks)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].TenantTaskID == tenantTaskID {
			out := tasks[i]
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *taskRepo) MarkSuccess(ctx context.Context, tenantTaskID string, resultData json.RawMessage, storagePaths []string) error {
	return r.complete(tenantTaskID, func(rec *repository.TaskRecord) {
		rec.Status = repository.TaskStatusSuccess
		rec.ResultData = resultData
		rec.StoragePaths = storagePaths
		rec.ErrorMessage = ""
	})
}

func (r *taskRepo) MarkFailed(ctx context.Context, tenantTaskID string, errorMessage string) error {
	return r.complete(tenantTaskID, func(rec *repository.TaskRecord) {
		rec.Status = repository.TaskStatusFailed
		rec.ErrorMessage = errorMessage
	})
}

// complete aplica una transición terminal write-once: un record que ya
// está en SUCCESS o FAILED no se vuelve a tocar.
func (r *taskRepo) complete(tenantTaskID string, apply func(*repository.TaskRecord)) error {
	mu := r.conn.locks[colTasks]
	mu.Lock()
	defer mu.Unlock()

	tasks, err := loadCollection[repository.TaskRecord](r.conn, colTasks)
	if err != nil {
		return err
	}

	idx := -1
	for i := range tasks {
		if tasks[i].TenantTaskID == tenantTaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return repository.ErrNotFound
	}
	if tasks[idx].IsTerminal() {
		return repository.ErrTerminal
	}

	now := time.Now().UTC()
	tasks[idx].CompletedAt = &now
	apply(&tasks[idx])

	return saveCollection(r.conn, colTasks, tasks)
}

func (r *taskRepo) ListByUser(ctx context.Context, userID int64, filter repository.ListTasksFilter) ([]repository.TaskRecord, error) {
	filter.Normalize()

	mu := r.conn.locks[colTasks]
	mu.RLock()
	defer mu.RUnlock()

	tasks, err := loadCollection[repository.TaskRecord](r.conn, colTasks)
	if err != nil {
		return nil, err
	}

	// Filtrar primero, paginar después: el offset cuenta sobre el set
	// ya filtrado.
	matched := make([]repository.TaskRecord, 0, len(tasks))
	for i := range tasks {
		if tasks[i].UserID != userID {
			continue
		}
		if filter.TaskType != "" && tasks[i].TaskType != filter.TaskType {
			continue
		}
		matched = append(matched, tasks[i])
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []repository.TaskRecord{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// ─── UsageRepository ───

type usageRepo struct{ conn *fsConnection }

func (r *usageRepo) Append(ctx context.Context, event repository.UsageEvent) error {
	if event.TenantID <= 0 || event.Endpoint == "" {
		return repository.ErrInvalidInput
	}
	if event.RequestCount <= 0 {
		event.RequestCount = 1
	}

	mu := r.conn.locks[colUsage]
	mu.Lock()
	defer mu.Unlock()

	events, err := loadCollection[repository.UsageEvent](r.conn, colUsage)
	if err != nil {
		return err
	}

	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	event.ID = nextID(ids)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	events = append(events, event)

	return saveCollection(r.conn, colUsage, events)
}

func (r *usageRepo) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]repository.UsageEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	mu := r.conn.locks[colUsage]
	mu.RLock()
	defer mu.RUnlock()

	events, err := loadCollection[repository.UsageEvent](r.conn, colUsage)
	if err != nil {
		return nil, err
	}

	matched := make([]repository.UsageEvent, 0, limit)
	for i := len(events) - 1; i >= 0 && len(matched) < limit; i-- {
		if events[i].TenantID == tenantID {
			matched = append(matched, events[i])
		}
	}
	return matched, nil
}
