// Package tasks contiene DTOs para los endpoints de tasks.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/runninghub"
)

// CreateRequest representa la solicitud de creación de un task.
type CreateRequest struct {
	TaskType     string                 `json:"task_type"`
	NodeInfoList []runninghub.NodeInfo  `json:"node_info_list"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// TaskResponse es la vista pública de un TaskRecord. El id del job
// externo no se expone.
type TaskResponse struct {
	TenantTaskID string          `json:"tenant_task_id"`
	TaskType     string          `json:"task_type"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ResultData   json.RawMessage `json:"result_data,omitempty"`
	StoragePaths []string        `json:"storage_paths,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// FromRecord proyecta un TaskRecord a su vista pública.
func FromRecord(rec *repository.TaskRecord) TaskResponse {
	return TaskResponse{
		TenantTaskID: rec.TenantTaskID,
		TaskType:     rec.TaskType,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
		CompletedAt:  rec.CompletedAt,
		ResultData:   rec.ResultData,
		StoragePaths: rec.StoragePaths,
		ErrorMessage: rec.ErrorMessage,
	}
}

// ListResponse es la página de tasks de un usuario.
type ListResponse struct {
	Tasks  []TaskResponse `json:"tasks"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// CompleteResponse es el resultado de un ciclo completo de polling +
// archivado disparado por el endpoint de complete.
type CompleteResponse struct {
	TenantTaskID string                `json:"tenant_task_id"`
	Outcome      string                `json:"outcome"` // SUCCEEDED | FAILED | TIMED_OUT
	Status       string                `json:"status"`  // status final del record local
	Artifacts    []runninghub.Artifact `json:"artifacts,omitempty"`
	ElapsedMs    int64                 `json:"elapsed_ms"`
}
