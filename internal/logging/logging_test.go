package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	quiet, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error: %v", err)
	}
	if quiet.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be suppressed without verbose")
	}
	if !quiet.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warnings should always be enabled")
	}

	loud, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error: %v", err)
	}
	if !loud.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled with verbose")
	}
}
