// Package config carga la configuración del servicio desde YAML con
// overrides por variable de entorno. El YAML es la base; toda clave tiene
// un env var que la pisa, para poder configurar contenedores sin archivo.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// Driver: "fs" | "postgres"
		Driver string `yaml:"driver"`
		FS     struct {
			Root string `yaml:"root"`
		} `yaml:"fs"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns int  `yaml:"max_open_conns"`
			MaxIdleConns int  `yaml:"max_idle_conns"`
			Migrate      bool `yaml:"migrate"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Poll struct {
		Interval string `yaml:"interval"`
		MaxWait  string `yaml:"max_wait"`
	} `yaml:"poll"`

	Archive struct {
		Root           string `yaml:"root"`
		ThumbnailMaxPx int    `yaml:"thumbnail_max_px"`
		Concurrency    int    `yaml:"concurrency"`
	} `yaml:"archive"`

	Runninghub struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		WebappID string `yaml:"webapp_id"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"runninghub"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"jwt"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`
}

// Load lee el YAML en path, aplica defaults y luego overrides de entorno.
// path vacío arranca de un Config en cero (solo defaults + env).
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8081"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "fs"
	}
	if c.Storage.FS.Root == "" {
		c.Storage.FS.Root = "data"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "2m"
	}
	if c.Poll.Interval == "" {
		c.Poll.Interval = "2s"
	}
	if c.Poll.MaxWait == "" {
		c.Poll.MaxWait = "5m"
	}
	if c.Archive.Root == "" {
		c.Archive.Root = "output"
	}
	if c.Archive.ThumbnailMaxPx == 0 {
		c.Archive.ThumbnailMaxPx = 512
	}
	if c.Archive.Concurrency == 0 {
		c.Archive.Concurrency = 4
	}
	if c.Runninghub.Timeout == "" {
		c.Runninghub.Timeout = "60s"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "comfygate"
	}
	if c.JWT.TTL == "" {
		c.JWT.TTL = "24h"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}

	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "fs", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage driver postgres requires dsn")
	}
	for _, d := range []struct{ name, val string }{
		{"poll.interval", c.Poll.Interval},
		{"poll.max_wait", c.Poll.MaxWait},
		{"cache.ttl", c.Cache.TTL},
		{"runninghub.timeout", c.Runninghub.Timeout},
		{"jwt.ttl", c.JWT.TTL},
		{"rate.login.window", c.Rate.Login.Window},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
	}
	return nil
}

// IsProd indica si el entorno es producción.
func (c *Config) IsProd() bool { return strings.ToLower(c.App.Env) == "prod" }

// Duration parsea una duración ya validada por Load.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_FS_ROOT"); ok {
		c.Storage.FS.Root = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvBool("POSTGRES_MIGRATE"); ok {
		c.Storage.Postgres.Migrate = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("POLL_INTERVAL"); ok {
		c.Poll.Interval = v
	}
	if v, ok := getEnvStr("POLL_MAX_WAIT"); ok {
		c.Poll.MaxWait = v
	}

	if v, ok := getEnvStr("ARCHIVE_ROOT"); ok {
		c.Archive.Root = v
	}
	if v, ok := getEnvInt("ARCHIVE_THUMBNAIL_MAX_PX"); ok {
		c.Archive.ThumbnailMaxPx = v
	}
	if v, ok := getEnvInt("ARCHIVE_CONCURRENCY"); ok {
		c.Archive.Concurrency = v
	}

	if v, ok := getEnvStr("RUNNINGHUB_BASE_URL"); ok {
		c.Runninghub.BaseURL = v
	}
	if v, ok := getEnvStr("RUNNINGHUB_API_KEY"); ok {
		c.Runninghub.APIKey = v
	}
	if v, ok := getEnvStr("RUNNINGHUB_WEBAPP_ID"); ok {
		c.Runninghub.WebappID = v
	}
	if v, ok := getEnvStr("RUNNINGHUB_TIMEOUT"); ok {
		c.Runninghub.Timeout = v
	}

	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_TTL"); ok {
		c.JWT.TTL = v
	}

	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
}
