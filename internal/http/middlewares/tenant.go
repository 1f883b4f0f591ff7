package middlewares

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/comfygate/internal/cache"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// RequireTenantAPIKey autentica por X-API-Key y deja el tenant en el
// contexto. El lookup va con cache al frente: el backend solo se toca en
// miss. Tenants inactivos no autentican (el repo ya los filtra).
func RequireTenantAPIKey(tenants repository.TenantRepository, c cache.Client, ttl time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if apiKey == "" {
				httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithDetail("missing X-API-Key"))
				return
			}

			ctx := r.Context()
			tenant := lookupCached(r, apiKey, c)
			if tenant == nil {
				var err error
				tenant, err = tenants.GetByAPIKey(ctx, apiKey)
				if err != nil {
					httperrors.WriteError(w, r, httperrors.ErrUnauthorized.WithCause(err))
					return
				}
				if c != nil {
					if b, err := json.Marshal(tenant); err == nil {
						_ = c.Set(ctx, cacheKey(apiKey), string(b), ttl)
					}
				}
			}

			ctx = WithTenant(ctx, tenant)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.TenantID(tenant.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cacheKey(apiKey string) string { return "tenant:apikey:" + apiKey }

func lookupCached(r *http.Request, apiKey string, c cache.Client) *repository.Tenant {
	if c == nil {
		return nil
	}
	raw, err := c.Get(r.Context(), cacheKey(apiKey))
	if err != nil {
		return nil
	}
	var t repository.Tenant
	if json.Unmarshal([]byte(raw), &t) != nil {
		return nil
	}
	return &t
}
