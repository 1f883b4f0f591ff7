// Package middlewares contiene los middlewares HTTP del servicio.
package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/jwt"
)

// Middleware es la firma estándar de un middleware.
type Middleware func(http.Handler) http.Handler

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxTenantKey    ctxKey = "tenant"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithSessionClaims inyecta las claims de sesión en el contexto.
func WithSessionClaims(ctx context.Context, claims *jwt.SessionClaims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// GetSessionClaims obtiene las claims de sesión del contexto.
// Retorna nil si el middleware de auth no corrió.
func GetSessionClaims(ctx context.Context) *jwt.SessionClaims {
	if v := ctx.Value(ctxClaimsKey); v != nil {
		if c, ok := v.(*jwt.SessionClaims); ok {
			return c
		}
	}
	return nil
}

// WithTenant inyecta el tenant autenticado en el contexto.
func WithTenant(ctx context.Context, t *repository.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenantKey, t)
}

// GetTenant obtiene el tenant del contexto, o nil.
func GetTenant(ctx context.Context) *repository.Tenant {
	if v := ctx.Value(ctxTenantKey); v != nil {
		if t, ok := v.(*repository.Tenant); ok {
			return t
		}
	}
	return nil
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
