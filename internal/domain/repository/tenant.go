package repository

import (
	"context"
	"encoding/json"
	"time"
)

// Tenant representa un arrendatario del sistema.
// Settings es un blob JSON opaco (overrides de proveedor, endpoints LLM, etc.)
// que los callers consumen sin que el backend lo interprete.
type Tenant struct {
	ID        int64
	Name      string
	APIKey    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
	Settings  json.RawMessage
}

// TenantRepository define operaciones sobre tenants.
// Los tenants nunca se eliminan: IsActive=false deshabilita el uso de
// credenciales sin perder el historial.
type TenantRepository interface {
	// Create crea un nuevo tenant con API key generada.
	// Retorna ErrConflict si el nombre ya existe.
	Create(ctx context.Context, name string, settings json.RawMessage) (*Tenant, error)

	// GetByID busca un tenant por su ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*Tenant, error)

	// GetByAPIKey busca un tenant activo por su API key.
	// Tenants con IsActive=false se tratan como inexistentes (ErrNotFound).
	GetByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
}
