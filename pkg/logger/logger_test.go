package logger

import "testing"

func TestNewLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "bogus"} {
		l := New(lvl)
		if l == nil {
			t.Fatalf("New(%q) returned nil", lvl)
		}
		l.Debug("debug message", "level", lvl)
		l.Info("info message", "level", lvl)
	}
}

func TestWithPreservesLogger(t *testing.T) {
	l := NewNop().With("component", "lifecycle")
	if l == nil {
		t.Fatal("With returned nil")
	}
	l.Info("scoped message")
}
