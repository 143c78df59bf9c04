package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlogAdapter_WithNil(t *testing.T) {
	adapter := NewSlogAdapter(nil)
	if adapter == nil {
		t.Fatal("NewSlogAdapter returned nil")
	}
	if adapter.Logger() == nil {
		t.Error("adapter.Logger() should not be nil when created with nil")
	}
}

func TestSlogAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Debug("d", "k", "v")
	adapter.Info("i")
	adapter.Warn("w")
	adapter.Error("e")

	out := buf.String()
	for _, want := range []string{"level=DEBUG msg=d k=v", "level=INFO msg=i", "level=WARN msg=w", "level=ERROR msg=e"} {
		assert.Contains(t, out, want)
	}
}

func TestDiscard(t *testing.T) {
	var l Logger = Discard{}
	// must not panic
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}
