package lg

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured log field, aliasing zapcore.Field for flexibility.
type Field = zapcore.Field

func Any(key string, value any) Field                { return zap.Any(key, value) }
func String(key, value string) Field                 { return zap.String(key, value) }
func Int(key string, value int) Field                { return zap.Int(key, value) }
func Int32(key string, value int32) Field            { return zap.Int32(key, value) }
func Bool(key string, value bool) Field              { return zap.Bool(key, value) }
func Err(err error) Field                            { return zap.Error(err) }
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Logger defines the minimal interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Config holds logging configuration options.
type Config struct {
	ServiceName string
	Quiet       bool   // errors only
	Verbose     bool   // debug level
	Format      string // "json" or "console"
}

// New builds a zap-based Logger based on cfg.
func New(cfg *Config) Logger {
	var baseCfg zap.Config
	if cfg.Verbose {
		baseCfg = zap.NewDevelopmentConfig()
		baseCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		baseCfg = zap.NewProductionConfig()
		baseCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if cfg.Quiet {
		baseCfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	if cfg.Format != "" {
		baseCfg.Encoding = cfg.Format
	}
	baseCfg.EncoderConfig.TimeKey = "timestamp"
	baseCfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	baseCfg.InitialFields = map[string]any{"service": cfg.ServiceName}

	logger, err := baseCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// Fall back to standard log if zap fails
		log.Printf("[FATAL] cannot initialize zap logger: %v", err)
		return defaultLogger{}
	}

	return &zapLogger{l: logger}
}

// zapLogger wraps a *zap.Logger to implement Logger.
type zapLogger struct{ l *zap.Logger }

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }

func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z.l.With(fields...)}
}

func (z *zapLogger) Sync() error {
	return z.l.Sync()
}

// defaultLogger falls back to the standard log package.
type defaultLogger struct{}

func (d defaultLogger) Debug(msg string, fields ...Field) {}
func (d defaultLogger) Info(msg string, fields ...Field) {
	log.Println("INFO:", msg)
}
func (d defaultLogger) Warn(msg string, fields ...Field) {
	log.Println("WARN:", msg)
}
func (d defaultLogger) Error(msg string, fields ...Field) {
	log.Println("ERROR:", msg)
}
func (d defaultLogger) With(fields ...Field) Logger { return d }
func (d defaultLogger) Sync() error                 { return nil }

// context key type for carrying Logger
// unexported to avoid collisions
type ctxKey struct{}

// Attach returns a new context with the provided Logger.
func Attach(ctx context.Context, lg Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, lg)
}

// FromContext retrieves the Logger from ctx, or falls back to defaultLogger.
func FromContext(ctx context.Context) Logger {
	if lg, ok := ctx.Value(ctxKey{}).(Logger); ok && lg != nil {
		return lg
	}
	return defaultLogger{}
}

// noopLogger does absolutely nothing. For test only
type noopLogger struct{}

func (noopLogger) Debug(msg string, _ ...Field) {}
func (noopLogger) Info(msg string, _ ...Field)  {}
func (noopLogger) Warn(msg string, _ ...Field)  {}
func (noopLogger) Error(msg string, _ ...Field) {}
func (noopLogger) With(_ ...Field) Logger       { return noopLogger{} }
func (noopLogger) Sync() error                  { return nil }

var Discard Logger = noopLogger{}
