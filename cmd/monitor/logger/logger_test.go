package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/HatiCode/dtstail/cmd/monitor/config"
)

func TestNew_TextFormat(t *testing.T) {
	cfg := &config.Config{
		LogFormat: "text",
		LogLevel:  "info",
	}

	logger := New(cfg)
	if logger == nil {
		t.Fatal("New() returned nil")
	}

	logger.Info("test message")
}

func TestNew_JSONFormat(t *testing.T) {
	cfg := &config.Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	logger := New(cfg)
	if logger == nil {
		t.Fatal("New() returned nil")
	}

	logger.Info("test message")
}

func TestNew_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		wantFunc func(*slog.Logger) bool
	}{
		{
			name:     "debug level",
			logLevel: "debug",
			wantFunc: func(l *slog.Logger) bool {
				return l.Enabled(context.TODO(), slog.LevelDebug)
			},
		},
		{
			name:     "info level",
			logLevel: "info",
			wantFunc: func(l *slog.Logger) bool {
				return l.Enabled(context.TODO(), slog.LevelInfo) && !l.Enabled(context.TODO(), slog.LevelDebug)
			},
		},
		{
			name:     "warn level",
			logLevel: "warn",
			wantFunc: func(l *slog.Logger) bool {
				return l.Enabled(context.TODO(), slog.LevelWarn) && !l.Enabled(context.TODO(), slog.LevelInfo)
			},
		},
		{
			name:     "error level",
			logLevel: "error",
			wantFunc: func(l *slog.Logger) bool {
				return l.Enabled(context.TODO(), slog.LevelError) && !l.Enabled(context.TODO(), slog.LevelWarn)
			},
		},
		{
			name:     "invalid level defaults to info",
			logLevel: "invalid",
			wantFunc: func(l *slog.Logger) bool {
				return l.Enabled(context.TODO(), slog.LevelInfo) && !l.Enabled(context.TODO(), slog.LevelDebug)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				LogFormat: "text",
				LogLevel:  tt.logLevel,
			}

			logger := New(cfg)
			if !tt.wantFunc(logger) {
				t.Errorf("logger level configuration incorrect for %s", tt.logLevel)
			}
		})
	}
}

func TestNew_EmptyLogLevel(t *testing.T) {
	cfg := &config.Config{
		LogFormat: "text",
		LogLevel:  "",
	}

	logger := New(cfg)

	if !logger.Enabled(context.TODO(), slog.LevelInfo) {
		t.Error("expected default level to be info")
	}
	if logger.Enabled(context.TODO(), slog.LevelDebug) {
		t.Error("expected debug to be disabled at info level")
	}
}
