// CLI admin para ComfyGate: opera contra /v1/admin vía HTTP, nunca contra
// el backend de datos directo.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL = envOr("COMFYGATE_ADMIN_URL", "http://localhost:8081")
		apiKey  = envOr("COMFYGATE_ADMIN_KEY", "")
		out     = envOr("COMFYGATE_OUT", "text")
		timeout = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "comfygate",
		Short: "CLI admin para ComfyGate (solo /v1/admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env COMFYGATE_ADMIN_KEY)")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env COMFYGATE_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key del Admin API (env COMFYGATE_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{BaseURL: baseURL, APIKey: apiKey, OutFormat: out, HTTP: &http.Client{Timeout: timeout}}

	tenantsCmd := &cobra.Command{Use: "tenants", Short: "Operaciones sobre tenants"}

	// tenants create
	var createName, createSettings string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crear un tenant (la respuesta incluye la API key)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createName == "" {
				return fmt.Errorf("--name es requerido")
			}
			payload := map[string]any{"name": createName}
			if createSettings != "" {
				var s json.RawMessage
				if err := json.Unmarshal([]byte(createSettings), &s); err != nil {
					return fmt.Errorf("--settings no es JSON válido: %w", err)
				}
				payload["settings"] = s
			}
			b, _ := json.Marshal(payload)
			status, body, err := cl.do("POST", "/v1/admin/tenants", b)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("create fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	createCmd.Flags().StringVar(&createName, "name", "", "Nombre del tenant")
	createCmd.Flags().StringVar(&createSettings, "settings", "", "Settings JSON (opcional)")

	// tenants get
	var getID int64
	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Consultar un tenant por id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if getID < 1 {
				return fmt.Errorf("--id es requerido")
			}
			status, body, err := cl.do("GET", fmt.Sprintf("/v1/admin/tenants/%d", getID), nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("get fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	getCmd.Flags().Int64Var(&getID, "id", 0, "ID del tenant")

	// tenants usage
	var usageID int64
	var usageLimit int
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Listar el audit trail de uso de un tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if usageID < 1 {
				return fmt.Errorf("--id es requerido")
			}
			path := fmt.Sprintf("/v1/admin/tenants/%d/usage?limit=%d", usageID, usageLimit)
			status, body, err := cl.do("GET", path, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("usage fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	usageCmd.Flags().Int64Var(&usageID, "id", 0, "ID del tenant")
	usageCmd.Flags().IntVar(&usageLimit, "limit", 100, "Máximo de eventos")

	tenantsCmd.AddCommand(createCmd, getCmd, usageCmd)

	// archive resync
	var resyncScope string
	resyncCmd := &cobra.Command{
		Use:   "resync",
		Short: "Reconciliar thumbnails del archivo de imágenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/v1/admin/archive/resync"
			if resyncScope != "" {
				path += "?scope=" + url.QueryEscape(resyncScope)
			}
			status, body, err := cl.do("POST", path, nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("resync fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	resyncCmd.Flags().StringVar(&resyncScope, "scope", "", "User ID a reconciliar (vacío = todos)")

	archiveCmd := &cobra.Command{Use: "archive", Short: "Operaciones sobre el archivo de imágenes"}
	archiveCmd.AddCommand(resyncCmd)

	root.AddCommand(tenantsCmd, archiveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
