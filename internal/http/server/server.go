// Package server arma el servicio completo: abre el backend de datos,
// construye clientes y controllers, y expone el http.Server con shutdown
// graceful. Es el único punto donde todas las piezas se conocen entre sí.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/comfygate/internal/archive"
	"github.com/dropDatabas3/comfygate/internal/cache"
	"github.com/dropDatabas3/comfygate/internal/config"
	adminctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/admin"
	authctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/health"
	tasksctrl "github.com/dropDatabas3/comfygate/internal/http/controllers/tasks"
	"github.com/dropDatabas3/comfygate/internal/http/metrics"
	"github.com/dropDatabas3/comfygate/internal/http/router"
	"github.com/dropDatabas3/comfygate/internal/jwt"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/rate"
	"github.com/dropDatabas3/comfygate/internal/runninghub"
	"github.com/dropDatabas3/comfygate/internal/store"
	"github.com/dropDatabas3/comfygate/internal/taskrecord"

	// Drivers de almacenamiento: se registran vía init().
	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/fs"
	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/pg"
)

// Server encapsula el handler armado y sus recursos.
type Server struct {
	Handler http.Handler
	Conn    store.Connection

	cfg     *config.Config
	cleanup []func() error
}

// Build abre todas las dependencias a partir de la config. El caller debe
// llamar Close aunque Run falle.
func Build(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		FSRoot:       cfg.Storage.FS.Root,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	s.Conn = conn
	s.cleanup = append(s.cleanup, conn.Close)

	if cfg.Storage.Postgres.Migrate {
		if m, ok := conn.(store.Migratable); ok {
			if err := m.Migrate(ctx); err != nil {
				s.Close()
				return nil, fmt.Errorf("server: migrate: %w", err)
			}
		}
	}

	cacheClient, err := cache.New(cacheConfig(cfg))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: cache: %w", err)
	}
	s.cleanup = append(s.cleanup, cacheClient.Close)

	issuer, err := jwt.NewIssuer(cfg.JWT.Issuer, cfg.JWT.Secret, config.Duration(cfg.JWT.TTL))
	if err != nil {
		s.Close()
		return nil, err
	}

	rhClient := runninghub.New(runninghub.Config{
		BaseURL:  cfg.Runninghub.BaseURL,
		APIKey:   cfg.Runninghub.APIKey,
		WebappID: cfg.Runninghub.WebappID,
		Timeout:  config.Duration(cfg.Runninghub.Timeout),
	})
	poller := runninghub.NewPoller(rhClient,
		config.Duration(cfg.Poll.Interval),
		config.Duration(cfg.Poll.MaxWait))

	archiver, err := archive.New(archive.Config{
		Root:           cfg.Archive.Root,
		ThumbnailMaxPx: cfg.Archive.ThumbnailMaxPx,
		Concurrency:    cfg.Archive.Concurrency,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	registry := taskrecord.NewRegistry(conn.Tasks())

	metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("server: metrics: %w", err)
	}

	s.Handler = router.New(router.Deps{
		Cfg:            cfg,
		Cache:          cacheClient,
		Issuer:         issuer,
		Auth:           authctrl.New(conn.Users(), conn.Tenants(), issuer),
		Tasks:          tasksctrl.New(registry, rhClient, poller, archiver, conn.Usage()),
		Admin:          adminctrl.New(conn.Tenants(), conn.Usage(), archiver),
		Health:         healthctrl.New(conn),
		LoginLimiter:   loginLimiter(cfg, &s.cleanup),
		Metrics:        metricsHandler,
		StaticRoot:     archiver.Root(),
		Tenants:        conn.Tenants(),
		TenantCacheTTL: config.Duration(cfg.Cache.TTL),
	})
	return s, nil
}

// Run sirve hasta que ctx se cancele y luego apaga con gracia.
func (s *Server) Run(ctx context.Context) error {
	log := logger.L().Named("server")

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	log.Info("shutdown complete")
	return nil
}

// Close libera recursos en orden inverso de apertura.
func (s *Server) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		if err := s.cleanup[i](); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.L().Named("server").Warn("cleanup failed", logger.Err(err))
		}
	}
	s.cleanup = nil
}

func cacheConfig(cfg *config.Config) cache.Config {
	out := cache.Config{
		Driver: cfg.Cache.Kind,
		Prefix: cfg.Cache.Redis.Prefix,
	}
	if cfg.Cache.Kind == "redis" {
		host, port := splitAddr(cfg.Cache.Redis.Addr)
		out.Host = host
		out.Port = port
		out.Password = cfg.Cache.Redis.Password
		out.DB = cfg.Cache.Redis.DB
	}
	return out
}

// loginLimiter arma el rate limiter de /v1/auth/login. Con cache redis el
// contador es compartido entre réplicas; si no, ventana fija en memoria.
func loginLimiter(cfg *config.Config, cleanup *[]func() error) rate.Limiter {
	if !cfg.Rate.Enabled {
		return nil
	}
	limit := cfg.Rate.Login.Limit
	window := config.Duration(cfg.Rate.Login.Window)
	if limit <= 0 || window <= 0 {
		return nil
	}
	if cfg.Cache.Kind == "redis" {
		host, port := splitAddr(cfg.Cache.Redis.Addr)
		client := rdb.NewClient(&rdb.Options{
			Addr:     fmt.Sprintf("%s:%d", host, port),
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		*cleanup = append(*cleanup, client.Close)
		return rate.NewRedisLimiter(client, "rl:login:", limit, window)
	}
	return rate.NewMemoryLimiter(limit, window)
}

func splitAddr(addr string) (string, int) {
	if addr == "" {
		return "localhost", 6379
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
