// Package tasks contiene los controllers del ciclo de vida de tasks:
// creación (submit al backend de generación), consulta, listado y el
// ciclo de complete (polling + archivado + transición terminal).
package tasks

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/comfygate/internal/archive"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	dto "github.com/dropDatabas3/comfygate/internal/http/dto/tasks"
	httperrors "github.com/dropDatabas3/comfygate/internal/http/errors"
	"github.com/dropDatabas3/comfygate/internal/http/helpers"
	"github.com/dropDatabas3/comfygate/internal/http/metrics"
	"github.com/dropDatabas3/comfygate/internal/http/middlewares"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/runninghub"
	"github.com/dropDatabas3/comfygate/internal/taskrecord"
	"github.com/dropDatabas3/comfygate/internal/validation"
)

// Controller maneja los endpoints /v1/tasks.
type Controller struct {
	registry *taskrecord.Registry
	client   runninghub.Client
	poller   *runninghub.Poller
	archiver *archive.Archiver
	usage    repository.UsageRepository
}

// New crea el controller de tasks.
func New(registry *taskrecord.Registry, client runninghub.Client, poller *runninghub.Poller, archiver *archive.Archiver, usage repository.UsageRepository) *Controller {
	return &Controller{
		registry: registry,
		client:   client,
		poller:   poller,
		archiver: archiver,
		usage:    usage,
	}
}

// Create maneja POST /v1/tasks: submit del job al API externo y alta del
// record local en PENDING.
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetSessionClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("tasks.create"))

	var req dto.CreateRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.TaskType = strings.TrimSpace(req.TaskType)
	if !validation.ValidTaskType(req.TaskType) {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("task_type inválido"))
		return
	}
	if len(req.NodeInfoList) == 0 {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("node_info_list vacío"))
		return
	}

	jobID, err := c.client.Submit(ctx, req.NodeInfoList)
	if err != nil {
		httperrors.WriteError(w, r, httperrors.ErrUpstream.WithCause(err))
		return
	}

	rec, err := c.registry.Create(ctx, claims.UserID, jobID, req.TaskType)
	if err != nil {
		// El job remoto ya corre; queda huérfano si esto falla.
		log.Error("record create failed after submit", logger.JobID(jobID), logger.Err(err))
		httperrors.WriteError(w, r, err)
		return
	}

	metrics.IncTaskSubmitted(req.TaskType)
	c.trackUsage(r, claims, "/v1/tasks")

	helpers.WriteJSON(w, http.StatusCreated, dto.FromRecord(rec))
}

// Get maneja GET /v1/tasks/{tenantTaskID}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetSessionClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	rec, err := c.ownedRecord(r, claims)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromRecord(rec))
}

// List maneja GET /v1/tasks con paginación y filtro opcional task_type.
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetSessionClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := repository.ListTasksFilter{
		TaskType: strings.TrimSpace(q.Get("task_type")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("limit inválido"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("offset inválido"))
			return
		}
		filter.Offset = n
	}
	if filter.TaskType != "" && !validation.ValidTaskType(filter.TaskType) {
		httperrors.WriteError(w, r, httperrors.ErrBadRequest.WithDetail("task_type inválido"))
		return
	}
	filter.Normalize()

	recs, err := c.registry.ListForUser(ctx, claims.UserID, filter)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}

	out := dto.ListResponse{
		Tasks:  make([]dto.TaskResponse, 0, len(recs)),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i := range recs {
		out.Tasks = append(out.Tasks, dto.FromRecord(&recs[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Complete maneja POST /v1/tasks/{tenantTaskID}/complete: espera el
// desenlace del job, archiva artifacts si hubo éxito y fija el estado
// terminal del record. Un timeout de polling NO es terminal: el record
// queda en PENDING y el caller puede reintentar.
func (c *Controller) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middlewares.GetSessionClaims(ctx)
	if claims == nil {
		httperrors.WriteError(w, r, httperrors.ErrUnauthorized)
		return
	}
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("tasks.complete"))

	rec, err := c.ownedRecord(r, claims)
	if err != nil {
		httperrors.WriteError(w, r, err)
		return
	}
	if rec.IsTerminal() {
		httperrors.WriteError(w, r, httperrors.ErrTaskAlreadyTerminal)
		return
	}

	outcome, err := c.poller.PollUntilComplete(ctx, rec.RunninghubTaskID)
	if err != nil {
		if errors.Is(err, runninghub.ErrPollTransport) {
			httperrors.WriteError(w, r, httperrors.ErrUpstream.WithCause(err))
			return
		}
		httperrors.WriteError(w, r, err)
		return
	}
	metrics.IncPollOutcome(string(outcome.State))

	resp := dto.CompleteResponse{
		TenantTaskID: rec.TenantTaskID,
		Outcome:      string(outcome.State),
		Status:       rec.Status,
		ElapsedMs:    outcome.Elapsed.Milliseconds(),
	}

	switch outcome.State {
	case runninghub.OutcomeSucceeded:
		artifacts, paths, err := c.archiveOutputs(r, claims.UserID, rec)
		if err != nil {
			httperrors.WriteError(w, r, err)
			return
		}
		if err := c.registry.MarkSuccess(ctx, rec.TenantTaskID, artifacts, paths); err != nil {
			httperrors.WriteError(w, r, err)
			return
		}
		resp.Status = repository.TaskStatusSuccess
		resp.Artifacts = artifacts

	case runninghub.OutcomeFailed:
		msg := fmt.Sprintf("upstream job failed with status %s", outcome.Status)
		if err := c.registry.MarkFailed(ctx, rec.TenantTaskID, msg); err != nil {
			httperrors.WriteError(w, r, err)
			return
		}
		resp.Status = repository.TaskStatusFailed

	case runninghub.OutcomeTimedOut:
		log.Info("poll timed out, record stays pending",
			logger.TaskID(rec.TenantTaskID), logger.JobID(rec.RunninghubTaskID))
	}

	c.trackUsage(r, claims, "/v1/tasks/complete")
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// archiveOutputs baja los outputs del job y los persiste en disco. Fallas
// por artifact no son fatales; una violación de path sí.
func (c *Controller) archiveOutputs(r *http.Request, userID int64, rec *repository.TaskRecord) ([]runninghub.Artifact, []string, error) {
	ctx := r.Context()

	artifacts, err := c.client.Outputs(ctx, rec.RunninghubTaskID)
	if err != nil {
		return nil, nil, httperrors.ErrUpstream.WithCause(err)
	}

	archived, paths, err := c.archiver.Archive(ctx, userID, artifacts)
	if err != nil {
		return nil, nil, err
	}
	for i := range archived {
		metrics.IncArtifact(artifactResult(archived[i]))
	}
	return archived, paths, nil
}

// artifactResult clasifica un artifact ya procesado para el contador de
// archivado. "failed" cuenta solo lo que el archiver intentó de verdad:
// los tipos pass-through y las URLs vacías son "skipped".
func artifactResult(a runninghub.Artifact) string {
	switch {
	case a.LocalPath != "":
		return "stored"
	case a.FileURL != "" && archive.Archivable(a.FileType):
		return "failed"
	default:
		return "skipped"
	}
}

// ownedRecord carga el record del path y chequea pertenencia. Un record
// ajeno se reporta como inexistente para no filtrar ids de otros usuarios.
func (c *Controller) ownedRecord(r *http.Request, claims *jwt.SessionClaims) (*repository.TaskRecord, error) {
	id := chi.URLParam(r, "tenantTaskID")
	if id == "" {
		return nil, httperrors.ErrBadRequest.WithDetail("tenant_task_id requerido")
	}
	rec, err := c.registry.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != claims.UserID {
		return nil, httperrors.ErrNotFound
	}
	return rec, nil
}

func (c *Controller) trackUsage(r *http.Request, claims *jwt.SessionClaims, endpoint string) {
	if c.usage == nil {
		return
	}
	event := repository.UsageEvent{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		Endpoint: endpoint,
	}
	if err := c.usage.Append(r.Context(), event); err != nil {
		logger.From(r.Context()).Warn("usage append failed", logger.Err(err))
	}
}
