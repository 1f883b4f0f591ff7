package repository

import (
	"context"
	"time"
)

// User representa un usuario del sistema, dueño exclusivo de un tenant.
// La integridad referencial de TenantID NO se chequea al escribir: ningún
// backend la garantiza, los callers no deben asumirla.
type User struct {
	ID           int64
	Username     string
	Email        string // opcional; unicidad solo si no está vacío
	PasswordHash string
	TenantID     int64
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	TenantID     int64
}

// UserRepository define operaciones sobre usuarios.
// Los usuarios solo mutan en dos puntos: registro y login (LastLogin).
type UserRepository interface {
	// Create crea un nuevo usuario.
	// Retorna ErrConflict si el username o el email (no vacío) ya existen.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByUsername busca un usuario por username.
	// Retorna ErrNotFound si no existe.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail busca un usuario por email.
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID busca un usuario por ID.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*User, error)

	// UpdateLastLogin registra el momento del último login.
	UpdateLastLogin(ctx context.Context, id int64) error
}
