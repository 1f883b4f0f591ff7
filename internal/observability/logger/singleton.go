package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controla el singleton. Env "prod" emite JSON a stderr; cualquier
// otro valor usa consola con colores para desarrollo.
type Config struct {
	Env         string
	Level       string // debug | info | warn | error
	ServiceName string
}

var (
	once     sync.Once
	instance *zap.Logger
)

// Init construye el singleton. Idempotente: solo la primera llamada tiene
// efecto. Llamar una vez al arrancar el binario.
func Init(cfg Config) {
	once.Do(func() { instance = build(cfg) })
}

// L devuelve el singleton. Si nadie llamó Init, arranca uno de desarrollo
// en nivel info.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{})
	}
	return instance
}

// With devuelve un logger con campos persistentes adicionales.
func With(fields ...zap.Field) *zap.Logger { return L().With(fields...) }

// S devuelve la variante sugared para logs printf-style.
func S() *zap.SugaredLogger { return L().Sugar() }

// Sync vacía los buffers pendientes. Pensado para defer en main.
func Sync() error {
	if instance == nil {
		return nil
	}
	return instance.Sync()
}

func build(cfg Config) *zap.Logger {
	prod := strings.EqualFold(cfg.Env, "prod")

	var enc zapcore.Encoder
	if prod {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		enc = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(parseLevel(cfg.Level)))

	opts := []zap.Option{zap.AddCaller()}
	if prod {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	l := zap.New(core, opts...)
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	return l
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
