package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	l, err := New(Config{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("error should be enabled at warn level")
	}
}

func TestNewEnvOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	l, err := New(Config{Level: "error", Development: true})
	if err != nil {
		t.Fatal(err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("LOG_LEVEL should override the configured level")
	}
}

func TestNewBadLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := WithFields(context.Background(), base, zap.String("request_id", "req-1"))
	FromContext(ctx, nil).Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-1" {
		t.Errorf("missing request_id field: %v", entries[0].ContextMap())
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("expected a no-op logger, got nil")
	}
	base := zap.NewExample()
	if FromContext(context.Background(), base) != base {
		t.Error("expected fallback logger")
	}
}
