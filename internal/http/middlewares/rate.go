package middlewares

import (
	"net/http"
	"strconv"

	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/rate"
)

// WithRateLimit aplica fixed-window por IP de cliente. limiter nil
// desactiva el middleware.
func WithRateLimit(limiter rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				// Limiter caído no bloquea el tráfico.
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				httperrors.WriteError(w, r, httperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
