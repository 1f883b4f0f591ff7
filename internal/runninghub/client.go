// Package runninghub es el cliente del API externo de generación.
// El API autentica con la apiKey DENTRO del body JSON (no headers) y sus
// respuestas varían de forma entre versiones; el parseo es tolerante y
// acepta las variantes conocidas de cada campo.
package runninghub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Estados terminales que reporta el API externo.
const (
	JobStatusPending = "PENDING"
	JobStatusSuccess = "SUCCESS"
	JobStatusFailed  = "FAILED"
)

// NodeInfo es un override de nodo dentro del workflow remoto.
type NodeInfo struct {
	NodeID     string `json:"nodeId"`
	FieldName  string `json:"fieldName"`
	FieldValue any    `json:"fieldValue"`
}

// Artifact es un output reportado por el job remoto.
type Artifact struct {
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType"`
	TaskCostTime string `json:"taskCostTime,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`

	// Campos locales, poblados por el archiver.
	LocalPath     string `json:"localPath,omitempty"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
	StoredAt      string `json:"storedAt,omitempty"`
}

// Client es el contrato que consumen el poller y los handlers.
type Client interface {
	// Submit lanza un job y retorna su id externo.
	Submit(ctx context.Context, nodeInfoList []NodeInfo) (string, error)

	// Status consulta el estado actual de un job.
	Status(ctx context.Context, jobID string) (string, error)

	// Outputs retorna los artifacts de un job terminado.
	Outputs(ctx context.Context, jobID string) ([]Artifact, error)
}

// Config del cliente HTTP.
type Config struct {
	BaseURL  string
	APIKey   string
	WebappID string
	Timeout  time.Duration
}

// httpClient implementa Client contra el API real.
type httpClient struct {
	baseURL  string
	apiKey   string
	webappID string
	hc       *http.Client
}

// New crea un Client HTTP.
func New(cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		webappID: cfg.WebappID,
		hc:       &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) Submit(ctx context.Context, nodeInfoList []NodeInfo) (string, error) {
	payload := map[string]any{
		"apiKey":       c.apiKey,
		"webappId":     c.webappID,
		"nodeInfoList": nodeInfoList,
	}
	raw, err := c.post(ctx, "/task/openapi/ai-app/run", payload)
	if err != nil {
		return "", err
	}

	jobID := extractJobID(raw)
	if jobID == "" {
		return "", fmt.Errorf("runninghub: submit: no task id in response %s", truncate(raw, 200))
	}
	return jobID, nil
}

func (c *httpClient) Status(ctx context.Context, jobID string) (string, error) {
	raw, err := c.post(ctx, "/task/openapi/status", map[string]any{
		"apiKey": c.apiKey,
		"taskId": jobID,
	})
	if err != nil {
		return "", err
	}

	var body struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("runninghub: status: decode: %w", err)
	}
	if body.Status != "" {
		return body.Status, nil
	}
	var s string
	if json.Unmarshal(body.Data, &s) == nil && s != "" {
		return s, nil
	}
	return "", fmt.Errorf("runninghub: status: no status in response %s", truncate(raw, 200))
}

func (c *httpClient) Outputs(ctx context.Context, jobID string) ([]Artifact, error) {
	raw, err := c.post(ctx, "/task/openapi/outputs", map[string]any{
		"apiKey": c.apiKey,
		"taskId": jobID,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Outputs []Artifact      `json:"outputs"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("runninghub: outputs: decode: %w", err)
	}
	if body.Outputs != nil {
		return body.Outputs, nil
	}
	var fromData []Artifact
	if len(body.Data) > 0 && json.Unmarshal(body.Data, &fromData) == nil {
		return fromData, nil
	}
	return []Artifact{}, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("runninghub: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("runninghub: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runninghub: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("runninghub: %s: read body: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("runninghub: %s: status %d: %s", path, resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

// extractJobID tolera las tres formas observadas del campo taskId:
// string directo, objeto {"taskId": "..."} anidado, o fallback en "data".
func extractJobID(raw json.RawMessage) string {
	var body struct {
		TaskID json.RawMessage `json:"taskId"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}

	var s string
	if json.Unmarshal(body.TaskID, &s) == nil && s != "" {
		return s
	}
	var nested struct {
		TaskID string `json:"taskId"`
	}
	if json.Unmarshal(body.TaskID, &nested) == nil && nested.TaskID != "" {
		return nested.TaskID
	}
	if json.Unmarshal(body.Data, &s) == nil && s != "" {
		return s
	}
	return ""
}

func truncate(raw []byte, n int) string {
	if len(raw) > n {
		return string(raw[:n]) + "..."
	}
	return string(raw)
}
