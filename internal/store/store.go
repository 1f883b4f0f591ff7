// Package store define la capa de acceso a datos con backends intercambiables.
//
// Cada driver (fs, postgres) se registra vía RegisterAdapter desde su init()
// y se abre por nombre con OpenAdapter. Los dos drivers cumplen el mismo
// contrato de repository; elegir uno u otro es solo configuración.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
)

// AdapterConfig configuración para conectar un driver.
type AdapterConfig struct {
	// Name del driver: "fs" | "postgres"
	Name string

	// FSRoot directorio de datos (driver fs)
	FSRoot string

	// DSN cadena de conexión (driver postgres)
	DSN string

	// Pool (driver postgres)
	MaxOpenConns int
	MaxIdleConns int
}

// Adapter es un driver de almacenamiento registrable.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection es una conexión activa a un backend.
// Expone un repositorio por colección; todas las implementaciones devuelven
// repositorios no-nil.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Tenants() repository.TenantRepository
	Users() repository.UserRepository
	Tasks() repository.TaskRepository
	Usage() repository.UsageRepository
}

// Migratable lo implementan las conexiones que saben aplicar su propio
// schema. El driver fs no lo necesita; el caller hace type-assert.
type Migratable interface {
	Migrate(ctx context.Context) error
}

var (
	adaptersMu sync.RWMutex
	adapters   = map[string]Adapter{}
)

// RegisterAdapter registra un driver. Pensado para llamarse desde init().
func RegisterAdapter(a Adapter) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[a.Name()] = a
}

// OpenAdapter conecta el driver indicado en cfg.Name.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	adaptersMu.RLock()
	a, ok := adapters[cfg.Name]
	adaptersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q (registered: %v)", cfg.Name, registeredNames())
	}
	conn, err := a.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", cfg.Name, err)
	}
	return conn, nil
}

func registeredNames() []string {
	var names []string
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
