// Package pg implementa el driver de almacenamiento sobre PostgreSQL.
// Usa pgxpool directamente; el schema está en migrations/postgres.
package pg

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &pgConnection{pool: pool}, nil
}

// pgConnection representa una conexión activa (pool) a PostgreSQL.
type pgConnection struct {
	pool *pgxpool.Pool
}

func (c *pgConnection) Name() string { return "postgres" }

func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgConnection) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *pgConnection) Tenants() repository.TenantRepository { return &tenantRepo{pool: c.pool} }
func (c *pgConnection) Users() repository.UserRepository     { return &userRepo{pool: c.pool} }
func (c *pgConnection) Tasks() repository.TaskRepository     { return &taskRepo{pool: c.pool} }
func (c *pgConnection) Usage() repository.UsageRepository    { return &usageRepo{pool: c.pool} }

// newTenantTaskID genera un tenant task id fresco: prefijo de namespace +
// 16 hex chars (64 bits de entropía). Mismo formato que el driver fs.
func newTenantTaskID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "tenant_" + hex.EncodeToString(b)
}

// isUniqueViolation detecta el código 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ─── TenantRepository ───

type tenantRepo struct {
	pool *pgxpool.Pool
}

func (r *tenantRepo) Create(ctx context.Context, name string, settings json.RawMessage) (*repository.Tenant, error) {
	if strings.TrimSpace(name) == "" {
		return nil, repository.ErrInvalidInput
	}
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}

	const query = `
		INSERT INTO tenants (name, api_key, is_active, settings)
		VALUES ($1, $2, TRUE, $3)
		RETURNING id, name, api_key, is_active, created_at, updated_at, settings
	`
	t, err := scanTenant(r.pool.QueryRow(ctx, query, name, uuid.New().String(), settings))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create tenant: %w", err)
	}
	return t, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id int64) (*repository.Tenant, error) {
	const query = `
		SELECT id, name, api_key, is_active, created_at, updated_at, settings
		FROM tenants WHERE id = $1
	`
	t, err := scanTenant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get tenant: %w", err)
	}
	return t, nil
}

func (r *tenantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*repository.Tenant, error) {
	const query = `
		SELECT id, name, api_key, is_active, created_at, updated_at, settings
		FROM tenants WHERE api_key = $1 AND is_active = TRUE
	`
	t, err := scanTenant(r.pool.QueryRow(ctx, query, apiKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get tenant by api key: %w", err)
	}
	return t, nil
}

func scanTenant(row pgx.Row) (*repository.Tenant, error) {
	var t repository.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.APIKey, &t.IsActive, &t.CreatedAt, &t.UpdatedAt, &t.Settings)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ─── UserRepository ───

type userRepo struct {
	pool *pgxpool.Pool
}

func (r *userRepo) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	if strings.TrimSpace(input.Username) == "" || input.PasswordHash == "" {
		return nil, repository.ErrInvalidInput
	}

	const query = `
		INSERT INTO users (username, email, password_hash, tenant_id, is_active)
		VALUES ($1, NULLIF($2, ''), $3, $4, TRUE)
		RETURNING id, username, COALESCE(email, ''), password_hash, tenant_id, is_active, created_at, last_login
	`
	u, err := scanUser(r.pool.QueryRow(ctx, query, input.Username, input.Email, input.PasswordHash, input.TenantID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, fmt.Errorf("pg: create user: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	return r.get(ctx, `username = $1`, username)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return r.get(ctx, `email = $1`, email)
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *userRepo) get(ctx context.Context, where string, arg any) (*repository.User, error) {
	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, tenant_id, is_active, created_at, last_login
		FROM users WHERE ` + where
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get user: %w", err)
	}
	return u, nil
}

func (r *userRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pg: update last_login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TenantID, &u.IsActive, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
