package repository

import (
	"context"
	"encoding/json"
	"time"
)

// Estados de un TaskRecord. PENDING es el único estado no terminal;
// la transición a SUCCESS o FAILED ocurre exactamente una vez.
const (
	TaskStatusPending = "PENDING"
	TaskStatusSuccess = "SUCCESS"
	TaskStatusFailed  = "FAILED"
)

// TaskRecord es el registro local de un trabajo enviado al backend de
// generación. TenantTaskID es el único identificador que se expone hacia
// afuera; RunninghubTaskID es el id del job en el sistema externo y no
// sale del subsistema de archivado.
//
// Los tags JSON son el contrato durable del backend fs: otros componentes
// leen exactamente este set de campos con estos nombres.
type TaskRecord struct {
	ID               int64           `json:"id"`
	TenantTaskID     string          `json:"tenant_task_id"`
	UserID           int64           `json:"user_id"`
	RunninghubTaskID string          `json:"runninghub_task_id"`
	TaskType         string          `json:"task_type"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
	ResultData       json.RawMessage `json:"result_data"`
	StoragePaths     []string        `json:"storage_paths"`
	ErrorMessage     string          `json:"error_message"`
}

// IsTerminal indica si el record ya alcanzó SUCCESS o FAILED.
func (t *TaskRecord) IsTerminal() bool {
	return t.Status == TaskStatusSuccess || t.Status == TaskStatusFailed
}

// ListTasksFilter opciones para listar tasks de un usuario.
type ListTasksFilter struct {
	Limit    int    // Default 50, max 200
	Offset   int    // Default 0
	TaskType string // Opcional: filtro de igualdad, aplicado ANTES de paginar
}

// Normalize aplica defaults y cotas a los parámetros de paginación.
func (f *ListTasksFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// TaskRepository define operaciones sobre task records.
type TaskRepository interface {
	// Create crea un record en PENDING con un TenantTaskID fresco.
	// El id se genera una sola vez y nunca se reutiliza.
	Create(ctx context.Context, userID int64, runninghubTaskID, taskType string) (*TaskRecord, error)

	// GetByTenantTaskID busca un record por su tenant task id.
	// Retorna ErrNotFound si no existe.
	GetByTenantTaskID(ctx context.Context, tenantTaskID string) (*TaskRecord, error)

	// MarkSuccess transiciona el record a SUCCESS con resultado y paths.
	// Retorna ErrNotFound si no existe, ErrTerminal si ya es terminal.
	MarkSuccess(ctx context.Context, tenantTaskID string, resultData json.RawMessage, storagePaths []string) error

	// MarkFailed transiciona el record a FAILED con el mensaje de error.
	// Retorna ErrNotFound si no existe, ErrTerminal si ya es terminal.
	MarkFailed(ctx context.Context, tenantTaskID string, errorMessage string) error

	// ListByUser lista records de un usuario ordenados por CreatedAt
	// descendente (más reciente primero), con paginación.
	ListByUser(ctx context.Context, userID int64, filter ListTasksFilter) ([]TaskRecord, error)
}
