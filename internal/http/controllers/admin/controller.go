// Package admin contiene la superficie administrativa: alta y consulta de
// tenants, audit trail de uso y resync del almacén de imágenes.
package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/comfygate/internal/archive"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	dto "github.com/dropDatabas3/comfygate/internal/http/dto/admin"
	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/http/helpers"
	"github.com/dropDatabas3/comfygate/internal/http/middlewares"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// Controller maneja los endpoints /v1/admin y /v1/tenant/me.
type Controller struct {
	tenants  repository.TenantRepository
	usage    repository.UsageRepository
	archiver *archive.Archiver
}

// New crea el controller administrativo.
func New(tenants repository.TenantRepository, usage repository.UsageRepository, archiver *archive.Archiver) *Controller {
	return &Controller{tenants: tenants, usage: usage, archiver: archiver}
}

// CreateTenant maneja POST /v1/admin/tenants.
func (c *Controller) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("admin.tenant_create"))

	var req dto.CreateTenantRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("name requerido"))
		return
	}

	t, err := c.tenants.Create(ctx, req.Name, req.Settings)
	if err != nil {
		if repository.IsConflict(err) {
			httperrors.WriteError(w, r, httperrors.ErrConflict.WithDetail("tenant ya existe"))
			return
		}
		httperrors.WriteError(w, r, err)
		return
	}

	log.Info("tenant created", logger.TenantID(t.ID))
	w.Header().Set("Cache-Control", "no-store") // la respuesta incluye la API key
	helpers.WriteJSON(w, http.StatusCreated, dto.FromTenant(t))
}

// GetTenant maneja GET /v1/admin/tenants/{id}.
func (c *Controller) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	t, err := c.tenants.GetByID(r.Context(), id)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, dto.FromTenant(t))
}

// ListUsage maneja GET /v1/admin/tenants/{id}/usage.
func (c *Controller) ListUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("limit inválido"))
			return
		}
		limit = n
	}

	events, err := c.usage.ListByTenant(r.Context(), id, limit)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := make([]dto.UsageEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, dto.UsageEventResponse{
			ID:           ev.ID,
			TenantID:     ev.TenantID,
			UserID:       ev.UserID,
			Endpoint:     ev.Endpoint,
			RequestCount: ev.RequestCount,
			CreatedAt:    ev.CreatedAt,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// ResyncArchive maneja POST /v1/admin/archive/resync. Con ?scope=<userID>
// reconcilia solo ese directorio; sin scope, todos.
func (c *Controller) ResyncArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("admin.archive_resync"))

	var (
		rep *archive.ResyncReport
		err error
	)
	if scope := strings.TrimSpace(r.URL.Query().Get("scope")); scope != "" {
		rep, err = c.archiver.ResyncThumbnails(ctx, scope)
	} else {
		rep, err = c.archiver.ResyncAll(ctx)
	}
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	log.Info("archive resync done",
		logger.Int("generated", rep.Generated),
		logger.Int("deleted", rep.Deleted),
		logger.Int("failed", rep.Failed))
	helpers.WriteJSON(w, http.StatusOK, rep)
}

// TenantMe maneja GET /v1/tenant/me, autenticado por X-API-Key. No expone
// credenciales.
func (c *Controller) TenantMe(w http.ResponseWriter, r *http.Request) {
	t := middlewares.GetTenant(r.Context())
	if t == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PublicTenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	})
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, httperrors.ErrBadRequest.WithDetail("id inválido")
	}
	return id, nil
}
