// Package log carries a zap logger in a context.Context.
//
// Components never configure logging themselves: the caller injects a logger
// with WithLogger and every function logs through Logger(ctx). Without an
// injected logger, messages are discarded.
package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var nop = zap.NewNop()

// WithLogger returns a copy of ctx carrying l
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	if l == nil {
		l = nop
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// Logger returns the logger carried by ctx, or a no-op logger
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return nop
}

// With returns a copy of ctx whose logger has the additional key/value pairs
func With(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return WithLogger(ctx, Logger(ctx).Sugar().With(keysAndValues...).Desugar())
}

// New creates a logger writing json (or console text if development is set) at the given level
func New(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Fatal logs the message on stderr and exits with code 1
func Fatal(msg string, fields ...zap.Field) {
	l, err := New("", false)
	if err != nil {
		os.Stderr.WriteString(msg + "\n")
		os.Exit(1)
	}
	l.Fatal(msg, fields...)
}
