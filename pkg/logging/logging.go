package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields holds structured logging context
type Fields map[string]any

// Logger is the logging interface used across the engine. Components hold
// a Logger scoped with their component name and re-scope per function.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	WithFields(fields Fields) Logger
}

// Config controls the default logger construction
type Config struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = newZapLogger(defaultZap("info"), nil)
)

// Init replaces the process-wide default logger. Safe to call once from cmd.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = newZapLogger(defaultZap(cfg.Level, withRotation(cfg)...), nil)
}

// NewDefaultLogger returns the process-wide default logger.
func NewDefaultLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithFields returns the default logger scoped with fields.
func WithFields(fields Fields) Logger {
	return NewDefaultLogger().WithFields(fields)
}

type zapLogger struct {
	base   *zap.Logger
	fields Fields
}

func newZapLogger(base *zap.Logger, fields Fields) *zapLogger {
	return &zapLogger{base: base, fields: fields}
}

func (l *zapLogger) Debug(msg string, fields ...Fields) {
	l.base.Debug(msg, l.zapFields(nil, fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Fields) {
	l.base.Info(msg, l.zapFields(nil, fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Fields) {
	l.base.Warn(msg, l.zapFields(nil, fields)...)
}

func (l *zapLogger) Error(err error, msg string, fields ...Fields) {
	l.base.Error(msg, l.zapFields(err, fields)...)
}

func (l *zapLogger) WithFields(fields Fields) Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return newZapLogger(l.base, merged)
}

func (l *zapLogger) zapFields(err error, extra []Fields) []zap.Field {
	out := make([]zap.Field, 0, len(l.fields)+4)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for k, v := range l.fields {
		out = append(out, zap.Any(k, v))
	}
	for _, f := range extra {
		for k, v := range f {
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

type coreOption func(level zapcore.Level) zapcore.Core

func withRotation(cfg Config) []coreOption {
	if cfg.OutputPath == "" {
		return nil
	}
	return []coreOption{func(level zapcore.Level) zapcore.Core {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0755); err != nil {
			return nil
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.OutputPath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), writer, level)
	}}
}

func defaultZap(level string, extras ...coreOption) *zap.Logger {
	lvl := parseLevel(level)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(os.Stderr), lvl),
	}
	for _, opt := range extras {
		if core := opt(lvl); core != nil {
			cores = append(cores, core)
		}
	}
	return zap.New(zapcore.NewTee(cores...))
}
