// Package admin contiene DTOs para la superficie administrativa.
package admin

import (
	"encoding/json"
	"time"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
)

// CreateTenantRequest representa el alta de un tenant.
type CreateTenantRequest struct {
	Name     string          `json:"name"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// TenantResponse es la vista administrativa de un tenant, API key
// incluida: solo se sirve detrás de X-Admin-API-Key.
type TenantResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	APIKey    string          `json:"api_key"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	Settings  json.RawMessage `json:"settings,omitempty"`
}

// FromTenant proyecta un Tenant a su vista administrativa.
func FromTenant(t *repository.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		APIKey:    t.APIKey,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		Settings:  t.Settings,
	}
}

// PublicTenantResponse es la vista de un tenant sin credenciales,
// para el endpoint autenticado por X-API-Key.
type PublicTenantResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UsageEventResponse es un evento del audit trail.
type UsageEventResponse struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"tenant_id"`
	UserID       int64     `json:"user_id,omitempty"`
	Endpoint     string    `json:"endpoint"`
	RequestCount int       `json:"request_count"`
	CreatedAt    time.Time `json:"created_at"`
}
