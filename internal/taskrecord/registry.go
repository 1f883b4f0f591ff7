// Package taskrecord mantiene el registro local de jobs enviados al
// backend de generación. El registry no cachea nada: cada operación
// relee el backend de almacenamiento, que es la única fuente de verdad.
package taskrecord

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// Registry gestiona el ciclo de vida de TaskRecords sobre un
// TaskRepository. La separación entre tenant task id (expuesto) y
// runninghub task id (interno) vive acá: ningún caller del registry
// necesita conocer el id externo.
type Registry struct {
	tasks repository.TaskRepository
}

// NewRegistry crea un Registry sobre el repositorio dado.
func NewRegistry(tasks repository.TaskRepository) *Registry {
	return &Registry{tasks: tasks}
}

// Create registra un job recién enviado, en estado PENDING, y retorna el
// record con su tenant task id fresco.
func (r *Registry) Create(ctx context.Context, userID int64, runninghubTaskID, taskType string) (*repository.TaskRecord, error) {
	rec, err := r.tasks.Create(ctx, userID, runninghubTaskID, taskType)
	if err != nil {
		return nil, fmt.Errorf("taskrecord: create: %w", err)
	}
	logger.From(ctx).Info("task record created",
		logger.TaskID(rec.TenantTaskID),
		logger.UserID(userID),
		logger.JobID(runninghubTaskID),
		logger.TaskType(taskType),
	)
	return rec, nil
}

// Get busca un record por tenant task id.
func (r *Registry) Get(ctx context.Context, tenantTaskID string) (*repository.TaskRecord, error) {
	return r.tasks.GetByTenantTaskID(ctx, tenantTaskID)
}

// MarkSuccess transiciona un record a SUCCESS. resultData se serializa a
// JSON tal cual. Retorna repository.ErrNotFound o repository.ErrTerminal;
// el caller decide qué hacer con cada uno, nunca se tragan acá.
func (r *Registry) MarkSuccess(ctx context.Context, tenantTaskID string, resultData any, storagePaths []string) error {
	data, err := json.Marshal(resultData)
	if err != nil {
		return fmt.Errorf("taskrecord: encode result: %w", err)
	}
	if err := r.tasks.MarkSuccess(ctx, tenantTaskID, data, storagePaths); err != nil {
		return fmt.Errorf("taskrecord: mark success: %w", err)
	}
	logger.From(ctx).Info("task record marked success",
		logger.TaskID(tenantTaskID),
		logger.Count(len(storagePaths)),
	)
	return nil
}

// MarkFailed transiciona un record a FAILED con su mensaje de error.
func (r *Registry) MarkFailed(ctx context.Context, tenantTaskID, errorMessage string) error {
	if err := r.tasks.MarkFailed(ctx, tenantTaskID, errorMessage); err != nil {
		return fmt.Errorf("taskrecord: mark failed: %w", err)
	}
	logger.From(ctx).Info("task record marked failed",
		logger.TaskID(tenantTaskID),
		logger.String("error_message", errorMessage),
	)
	return nil
}

// ListForUser lista los records de un usuario, más reciente primero.
func (r *Registry) ListForUser(ctx context.Context, userID int64, filter repository.ListTasksFilter) ([]repository.TaskRecord, error) {
	return r.tasks.ListByUser(ctx, userID, filter)
}
