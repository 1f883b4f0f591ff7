package runninghub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitSendsAPIKeyInBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		require.Empty(t, r.Header.Get("Authorization"), "la apiKey viaja en el body, no en headers")
		_, _ = w.Write([]byte(`{"taskId":"job-42"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "k-123", WebappID: "w-9"})
	jobID, err := c.Submit(context.Background(), []NodeInfo{{NodeID: "5", FieldName: "text", FieldValue: "a cat"}})
	require.NoError(t, err)
	require.Equal(t, "job-42", jobID)
	require.Equal(t, "/task/openapi/ai-app/run", gotPath)
	require.Equal(t, "k-123", gotBody["apiKey"])
	require.Equal(t, "w-9", gotBody["webappId"])
}

func TestSubmitToleratesResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"string taskId", `{"taskId":"a1"}`, "a1"},
		{"nested taskId", `{"taskId":{"taskId":"a2"}}`, "a2"},
		{"data fallback", `{"data":"a3"}`, "a3"},
		{"bare string", `"a4"`, "a4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := New(Config{BaseURL: srv.URL})
			jobID, err := c.Submit(context.Background(), nil)
			require.NoError(t, err)
			require.Equal(t, tc.want, jobID)
		})
	}
}

func TestSubmitErrorsWithoutTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":500,"msg":"internal"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)
}

func TestStatusParsesTopLevelAndData(t *testing.T) {
	responses := []string{
		`{"status":"PENDING"}`,
		`{"data":"SUCCESS"}`,
	}
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[i]))
		i++
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	st, err := c.Status(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, st)

	st, err = c.Status(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusSuccess, st)
}

func TestStatusNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Status(context.Background(), "job-1")
	require.Error(t, err)
}

func TestOutputsParsesBothShapes(t *testing.T) {
	responses := []string{
		`{"outputs":[{"fileUrl":"http://x/a.png","fileType":"png"}]}`,
		`{"data":[{"fileUrl":"http://x/b.webp","fileType":"webp"}]}`,
		`{"data":null}`,
	}
	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[i]))
		i++
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	arts, err := c.Outputs(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, arts, 1)
	require.Equal(t, "png", arts[0].FileType)

	arts, err = c.Outputs(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, arts, 1)
	require.Equal(t, "webp", arts[0].FileType)

	arts, err = c.Outputs(context.Background(), "job-1")
	require.NoError(t, err)
	require.Empty(t, arts)
}
