// Package health contiene los probes de liveness y readiness.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/comfygate/internal/http/helpers"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/store"
)

// Controller expone /healthz y /readyz.
type Controller struct {
	conn store.Connection
}

// New crea el controller de health.
func New(conn store.Connection) *Controller {
	return &Controller{conn: conn}
}

// Healthz indica que el proceso está vivo. No toca dependencias.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz verifica que el backend de almacenamiento responda.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.conn.Ping(ctx); err != nil {
		logger.From(r.Context()).Warn("readiness ping failed",
			logger.String("driver", c.conn.Name()), logger.Err(err))
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"driver": c.conn.Name(),
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"driver": c.conn.Name(),
	})
}
