package repository

import (
	"context"
	"time"
)

// UsageEvent es una entrada del audit trail de uso de la API.
// Append-only: no existe update ni delete.
type UsageEvent struct {
	ID           int64
	TenantID     int64
	UserID       int64
	Endpoint     string
	RequestCount int
	CreatedAt    time.Time
}

// UsageRepository define el registro de uso.
type UsageRepository interface {
	// Append agrega un evento de uso. ID y CreatedAt los asigna el
	// backend; RequestCount en cero cuenta como 1.
	Append(ctx context.Context, event UsageEvent) error

	// ListByTenant lista eventos de un tenant, más reciente primero.
	ListByTenant(ctx context.Context, tenantID int64, limit int) ([]UsageEvent, error)
}
