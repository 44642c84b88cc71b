package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() {
		Replace(zap.NewNop())
	})

	if err := Init("debug"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	if !Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestReplaceRestoresPrevious(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	prev := Replace(zap.New(core))
	t.Cleanup(func() {
		Replace(prev)
	})

	Info("checkin accepted", zap.String("session", "s1"))
	Warn("audit write failed")
	Error("storage unavailable")

	entries := recorded.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["session"] != "s1" {
		t.Fatalf("expected session field, got %v", entries[0].ContextMap())
	}
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	prev := Replace(zap.New(core))
	t.Cleanup(func() {
		Replace(prev)
	})

	WithModule("attendance").Info("module test")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if module := entries[0].ContextMap()["module"]; module != "attendance" {
		t.Fatalf("expected module field to be \"attendance\", got %v", module)
	}
}
