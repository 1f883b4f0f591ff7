package tasks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/comfygate/internal/archive"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	tasksctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/tasks"
	"github.com/dropDatabas3/comfygate/internal/http/middlewares"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/runninghub"
	"github.com/dropDatabas3/comfygate/internal/store"
	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/fs"
	"github.com/dropDatabas3/comfygate/internal/taskrecord"
)

// scriptedClient responde con un guion fijo de statuses.
type scriptedClient struct {
	jobID    string
	statuses []string
	outputs  []runninghub.Artifact
	calls    int
}

func (s *scriptedClient) Submit(ctx context.Context, nodes []runninghub.NodeInfo) (string, error) {
	return s.jobID, nil
}

func (s *scriptedClient) Status(ctx context.Context, jobID string) (string, error) {
	i := s.calls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.calls++
	return s.statuses[i], nil
}

func (s *scriptedClient) Outputs(ctx context.Context, jobID string) ([]runninghub.Artifact, error) {
	return s.outputs, nil
}

type env struct {
	handler http.Handler
	conn    store.Connection
	token   string
	other   string
}

func newEnv(t *testing.T, client runninghub.Client) *env {
	t.Helper()

	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: "fs", FSRoot: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	issuer, err := jwt.NewIssuer("comfygate", "test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Sign(1, 1, "alice")
	require.NoError(t, err)
	other, err := issuer.Sign(2, 1, "bob")
	require.NoError(t, err)

	archiver, err := archive.New(archive.Config{Root: t.TempDir(), ThumbnailMaxPx: 32, Concurrency: 2})
	require.NoError(t, err)

	registry := taskrecord.NewRegistry(conn.Tasks())
	poller := runninghub.NewPoller(client, 5*time.Millisecond, time.Second)
	ctrl := tasksctrl.New(registry, client, poller, archiver, conn.Usage())

	r := chi.NewRouter()
	r.Route("/v1/tasks", func(r chi.Router) {
		r.Use(middlewares.RequireSession(issuer))
		r.Post("/", ctrl.Create)
		r.Get("/", ctrl.List)
		r.Get("/{tenantTaskID}", ctrl.Get)
		r.Post("/{tenantTaskID}/complete", ctrl.Complete)
	})

	return &env{handler: r, conn: conn, token: token, other: other}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func createTask(t *testing.T, e *env) string {
	t.Helper()
	rec := e.do(t, "POST", "/v1/tasks", e.token, map[string]any{
		"task_type":      "image",
		"node_info_list": []map[string]any{{"nodeId": "5", "fieldName": "text", "fieldValue": "a cat"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		TenantTaskID string `json:"tenant_task_id"`
		Status       string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.TenantTaskID, "tenant_"))
	require.Equal(t, repository.TaskStatusPending, resp.Status)
	return resp.TenantTaskID
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, x, color.RGBA{A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreateDoesNotLeakUpstreamJobID(t *testing.T) {
	client := &scriptedClient{jobID: "rh-secret-99", statuses: []string{runninghub.JobStatusPending}}
	e := newEnv(t, client)

	rec := e.do(t, "POST", "/v1/tasks", e.token, map[string]any{
		"task_type":      "image",
		"node_info_list": []map[string]any{{"nodeId": "1"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "rh-secret-99")
}

func TestCreateValidatesInput(t *testing.T) {
	e := newEnv(t, &scriptedClient{jobID: "rh-1", statuses: []string{runninghub.JobStatusPending}})

	rec := e.do(t, "POST", "/v1/tasks", e.token, map[string]any{
		"task_type":      "BAD TYPE",
		"node_info_list": []map[string]any{{"nodeId": "1"}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/v1/tasks", e.token, map[string]any{"task_type": "image"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteSuccessArchivesAndPersists(t *testing.T) {
	img := testPNG(t)
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(img)
	}))
	defer files.Close()

	client := &scriptedClient{
		jobID:    "rh-1",
		statuses: []string{runninghub.JobStatusPending, runninghub.JobStatusSuccess},
		outputs:  []runninghub.Artifact{{FileURL: files.URL + "/out.png", FileType: "png"}},
	}
	e := newEnv(t, client)
	id := createTask(t, e)

	rec := e.do(t, "POST", "/v1/tasks/"+id+"/complete", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Outcome   string                `json:"outcome"`
		Status    string                `json:"status"`
		Artifacts []runninghub.Artifact `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "SUCCEEDED", resp.Outcome)
	require.Equal(t, repository.TaskStatusSuccess, resp.Status)
	require.Len(t, resp.Artifacts, 1)
	require.NotEmpty(t, resp.Artifacts[0].LocalPath)

	stored, err := e.conn.Tasks().GetByTenantTaskID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, repository.TaskStatusSuccess, stored.Status)
	require.Len(t, stored.StoragePaths, 1)

	// El ciclo de complete es write-once.
	rec = e.do(t, "POST", "/v1/tasks/"+id+"/complete", e.token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompleteUpstreamFailurePersistsFailed(t *testing.T) {
	client := &scriptedClient{jobID: "rh-1", statuses: []string{runninghub.JobStatusFailed}}
	e := newEnv(t, client)
	id := createTask(t, e)

	rec := e.do(t, "POST", "/v1/tasks/"+id+"/complete", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := e.conn.Tasks().GetByTenantTaskID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, repository.TaskStatusFailed, stored.Status)
	require.NotEmpty(t, stored.ErrorMessage)
}

func TestCompleteTimeoutLeavesPending(t *testing.T) {
	client := &scriptedClient{jobID: "rh-1", statuses: []string{runninghub.JobStatusPending}}
	e := newEnv(t, client)
	id := createTask(t, e)

	rec := e.do(t, "POST", "/v1/tasks/"+id+"/complete", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Outcome string `json:"outcome"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "TIMED_OUT", resp.Outcome)
	require.Equal(t, repository.TaskStatusPending, resp.Status)

	// El timeout no es terminal: el record sigue abierto para reintentos.
	stored, err := e.conn.Tasks().GetByTenantTaskID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, repository.TaskStatusPending, stored.Status)
}

func TestGetEnforcesOwnership(t *testing.T) {
	client := &scriptedClient{jobID: "rh-1", statuses: []string{runninghub.JobStatusPending}}
	e := newEnv(t, client)
	id := createTask(t, e)

	rec := e.do(t, "GET", "/v1/tasks/"+id, e.other, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "record ajeno se reporta inexistente")

	rec = e.do(t, "GET", "/v1/tasks/"+id, e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListPaginatesAndFilters(t *testing.T) {
	client := &scriptedClient{jobID: "rh-1", statuses: []string{runninghub.JobStatusPending}}
	e := newEnv(t, client)

	for i := 0; i < 3; i++ {
		createTask(t, e)
		time.Sleep(2 * time.Millisecond)
	}

	rec := e.do(t, "GET", "/v1/tasks?limit=2&task_type=image", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tasks []json.RawMessage `json:"tasks"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 2)
	require.Equal(t, 2, resp.Limit)

	rec = e.do(t, "GET", "/v1/tasks?task_type=video", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Tasks)
}
