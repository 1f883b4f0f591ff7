// Package fs implementa el driver de almacenamiento sobre archivos JSON.
// Cada colección vive en un archivo (<root>/tenants.json, users.json,
// tasks.json, api_usage.json) con un array de records. Toda escritura es
// read-entire-collection → mutate → write-entire-collection, serializada
// por un lock exclusivo por colección; sin ese lock dos completions
// concurrentes pisarían la escritura de la otra.
package fs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/store"
	"github.com/dropDatabas3/comfygate/internal/util/atomicwrite"
)

func init() {
	store.RegisterAdapter(&fsAdapter{})
}

// Nombres de las colecciones (= nombre de archivo sin extensión).
const (
	colTenants = "tenants"
	colUsers   = "users"
	colTasks   = "tasks"
	colUsage   = "api_usage"
)

// fsAdapter implementa store.Adapter para archivos JSON.
type fsAdapter struct{}

func (a *fsAdapter) Name() string { return "fs" }

func (a *fsAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	root := cfg.FSRoot
	if root == "" {
		root = "data"
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(root, 0755); mkErr != nil {
				return nil, fmt.Errorf("fs: create root path %s: %w", root, mkErr)
			}
		} else {
			return nil, fmt.Errorf("fs: root path error: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("fs: root path is not a directory: %s", root)
	}

	return &fsConnection{
		root: root,
		locks: map[string]*sync.RWMutex{
			colTenants: {},
			colUsers:   {},
			colTasks:   {},
			colUsage:   {},
		},
	}, nil
}

// fsConnection representa una conexión activa al directorio de datos.
type fsConnection struct {
	root  string
	locks map[string]*sync.RWMutex // un lock por colección
}

func (c *fsConnection) Name() string { return "fs" }

func (c *fsConnection) Ping(ctx context.Context) error {
	_, err := os.Stat(c.root)
	return err
}

func (c *fsConnection) Close() error { return nil }

// ─── Repositorios ───

func (c *fsConnection) Tenants() repository.TenantRepository { return &tenantRepo{conn: c} }
func (c *fsConnection) Users() repository.UserRepository     { return &userRepo{conn: c} }
func (c *fsConnection) Tasks() repository.TaskRepository     { return &taskRepo{conn: c} }
func (c *fsConnection) Usage() repository.UsageRepository    { return &usageRepo{conn: c} }

// ─── Helpers de colección ───

func (c *fsConnection) collectionFile(name string) string {
	return filepath.Join(c.root, name+".json")
}

// loadCollection lee el array completo de una colección.
// Archivo inexistente equivale a colección vacía. El caller debe sostener
// el lock correspondiente.
func loadCollection[T any](c *fsConnection, name string) ([]T, error) {
	data, err := os.ReadFile(c.collectionFile(name))
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("fs: read %s: %w", name, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("fs: parse %s: %w", name, err)
	}
	return items, nil
}

// saveCollection reescribe el array completo de forma atómica
// (tmp → fsync → rename), nunca dejando un archivo parcial visible.
func saveCollection[T any](c *fsConnection, name string, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("fs: marshal %s: %w", name, err)
	}
	if err := atomicwrite.AtomicWriteFile(c.collectionFile(name), data, 0644); err != nil {
		return fmt.Errorf("fs: write %s: %w", name, err)
	}
	return nil
}

// nextID calcula el siguiente id autoincremental de una colección.
// max+1 en vez de len+1: sobrevive a borrados manuales del archivo.
func nextID(ids []int64) int64 {
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// newTenantTaskID genera un tenant task id fresco: prefijo de namespace +
// 16 hex chars (64 bits de entropía). No se re-chequea contra records
// existentes; la probabilidad de colisión es despreciable.
func newTenantTaskID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "tenant_" + hex.EncodeToString(b)
}

// ─── TenantRepository ───

type tenantJSON struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	APIKey    string          `json:"api_key"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Settings  json.RawMessage `json:"settings"`
}

func (t *tenantJSON) toRepository() *repository.Tenant {
	return &repository.Tenant{
		ID:        t.ID,
		Name:      t.Name,
		APIKey:    t.APIKey,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Settings:  t.Settings,
	}
}

type tenantRepo struct{ conn *fsConnection }

func (r *tenantRepo) Create(ctx context.Context, name string, settings json.RawMessage) (*repository.Tenant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, repository.ErrInvalidInput
	}
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}

	mu := r.conn.locks[colTenants]
	mu.Lock()
	defer mu.Unlock()

	tenants, err := loadCollection[tenantJSON](r.conn, colTenants)
	if err != nil {
		return nil, err
	}

	for _, t := range tenants {
		if t.Name == name {
			return nil, repository.ErrConflict
		}
	}

	now := time.Now().UTC()
	tenant := tenantJSON{
		ID:        nextID(tenantIDs(tenants)),
		Name:      name,
		APIKey:    uuid.New().String(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Settings:  settings,
	}
	tenants = append(tenants, tenant)

	if err := saveCollection(r.conn, colTenants, tenants); err != nil {
		return nil, err
	}
	return tenant.toRepository(), nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*repository.Tenant, error) {
	mu := r.conn.locks[colTenants]
	mu.RLock()
	defer mu.RUnlock()

	tenants, err := loadCollection[tenantJSON](r.conn, colTenants)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		if tenants[i].ID == id {
			return tenants[i].toRepository(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*repository.Tenant, error) {
	mu := r.conn.locks[colTenants]
	mu.RLock()
	defer mu.RUnlock()

	tenants, err := loadCollection[tenantJSON](r.conn, colTenants)
	if err != nil {
		return nil, err
	}
	for i := range tenants {
		if tenants[i].APIKey == apiKey && tenants[i].IsActive {
			return tenants[i].toRepository(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func tenantIDs(tenants []tenantJSON) []int64 {
	ids := make([]int64, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
	}
	return ids
}

// ─── UserRepository ───

type userJSON struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"hashed_password"`
	TenantID       int64      `json:"tenant_id"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login"`
}

func (u *userJSON) toRepository() *repository.User {
	return &repository.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.HashedPassword,
		TenantID:     u.TenantID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}

type userRepo struct{ conn *fsConnection }

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	if strings.TrimSpace(input.Username) == "" || input.PasswordHash == "" {
		return nil, repository.ErrInvalidInput
	}

	mu := r.conn.locks[colUsers]
	mu.Lock()
	defer mu.Unlock()

	users, err := loadCollection[userJSON](r.conn, colUsers)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Username == input.Username {
			return nil, repository.ErrConflict
		}
		if input.Email != "" && u.Email == input.Email {
			return nil, repository.ErrConflict
		}
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	user := userJSON{
		ID:             nextID(ids),
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: input.PasswordHash,
		TenantID:       input.TenantID,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}
	users = append(users, user)

	if err := saveCollection(r.conn, colUsers, users); err != nil {
		return nil, err
	}
	return user.toRepository(), nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	return r.find(func(u *userJSON) bool { return u.Username == username })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return r.find(func(u *userJSON) bool { return u.Email == email })
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	return r.find(func(u *userJSON) bool { return u.ID == id })
}

func (r *userRepo) find(match func(*userJSON) bool) (*repository.User, error) {
	mu := r.conn.locks[colUsers]
	mu.RLock()
	defer mu.RUnlock()

	users, err := loadCollection[userJSON](r.conn, colUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(&users[i]) {
			return users[i].toRepository(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	mu := r.conn.locks[colUsers]
	mu.Lock()
	defer mu.Unlock()

	users, err := loadCollection[userJSON](r.conn, colUsers)
	if err != nil {
		return err
	}

	found := false
	now := time.Now().UTC()
	for i := range users {
		if users[i].ID == id {
			users[i].LastLogin = &now
			found = true
			break
		}
	}
	if !found {
		return repository.ErrNotFound
	}

	return saveCollection(r.conn, colUsers, users)
}
