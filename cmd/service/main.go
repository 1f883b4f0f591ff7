// Servicio HTTP principal: proxy de generación con tracking de tasks,
// archivado de imágenes y superficie administrativa.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/comfygate/internal/config"
	"github.com/dropDatabas3/comfygate/internal/http/server"
	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "comfygate:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta del YAML de configuración")
	flag.Parse()

	// .env es opcional; en contenedores la config llega por entorno.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Level: cfg.Log.Level, Env: cfg.App.Env, ServiceName: "comfygate"})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer srv.Close()

	logger.L().Info("starting",
		logger.String("env", cfg.App.Env),
		logger.String("storage_driver", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind))

	return srv.Run(ctx)
}
