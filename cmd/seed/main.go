// Seed de desarrollo: crea el tenant por defecto y un usuario demo contra
// el backend que indique la config. Idempotente: lo que ya existe se salta.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/comfygate/internal/config"
	"github.com/dropDatabas3/comfygate/internal/domain/repository"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/security/password"
	"github.com/dropDatabas3/comfygate/internal/store"

	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/fs"
	_ "github.com/dropDatabas3/comfygate/internal/store/adapters/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cfgPath  string
		username string
		pass     string
	)
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta del YAML de configuración")
	flag.StringVar(&username, "username", "demo", "usuario demo a crear")
	flag.StringVar(&pass, "password", "demo-pass-1", "password del usuario demo")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.Init(logger.Config{Level: cfg.Log.Level, Env: cfg.App.Env, ServiceName: "seed"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		FSRoot:       cfg.Storage.FS.Root,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns: cfg.Storage.Postgres.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	if m, ok := conn.(store.Migratable); ok {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}

	tenant, err := conn.Tenants().Create(ctx, "Default Tenant", nil)
	switch {
	case err == nil:
		log.Info("tenant created", logger.TenantID(tenant.ID), logger.Key(tenant.APIKey))
	case repository.IsConflict(err):
		log.Info("tenant already exists")
	default:
		return err
	}

	hash, err := password.Hash(password.Default, pass)
	if err != nil {
		return err
	}
	user, err := conn.Users().Create(ctx, repository.CreateUserInput{
		Username:     username,
		PasswordHash: hash,
		TenantID:     1,
	})
	switch {
	case err == nil:
		log.Info("user created", logger.UserID(user.ID), logger.String("username", user.Username))
	case repository.IsConflict(err):
		log.Info("user already exists", logger.String("username", username))
	default:
		return err
	}
	return nil
}
