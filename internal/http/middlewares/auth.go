package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// RequireSession valida el bearer token de sesión y deja las claims en el
// contexto. Sin token o token inválido responde 401.
func RequireSession(issuer *jwt.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="comfygate"`)
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithCause(err))
				return
			}

			ctx := WithSessionClaims(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminKey exige el header X-Admin-API-Key con la clave configurada.
// Clave vacía en config deshabilita toda la superficie admin.
func RequireAdminKey(adminKey string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				httperrors.WriteError(w, r, httperrors.ErrForbidden.WithDetail("admin api disabled"))
				return
			}
			got := strings.TrimSpace(r.Header.Get("X-Admin-API-Key"))
			if subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
				httperrors.WriteError(w, r, httperrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
