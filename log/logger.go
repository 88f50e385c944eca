// Package log provides structured JSON logging with sync-run context.
// Every entry carries the run id and target so interleaved per-asset
// work can be correlated after the fact.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunContext identifies one sync run.
type RunContext struct {
	// RunID is a fresh UUID per invocation.
	RunID string
	// Target is the selected backend: cloud, studio, debug, or s3.
	Target string
	// DryRun marks runs that perform no uploads.
	DryRun bool
}

// Logger provides structured logging with run context.
type Logger struct {
	zap *zap.Logger
}

// NewLogger creates a new logger with run context.
// Output defaults to os.Stderr.
func NewLogger(run RunContext) *Logger {
	return newLoggerWithWriter(run, os.Stderr)
}

// WithOutput returns a new logger with a different output writer.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Logger{zap: l.zap.WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

func newLoggerWithWriter(run RunContext, w io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)

	contextFields := []zap.Field{
		zap.String("run_id", run.RunID),
		zap.String("target", run.Target),
	}
	if run.DryRun {
		contextFields = append(contextFields, zap.Bool("dry_run", true))
	}

	return &Logger{zap: zap.New(core).With(contextFields...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}
