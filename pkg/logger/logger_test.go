package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestGet_BeforeInit(t *testing.T) {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()

	l := Get()
	if l == nil {
		t.Fatal("Get() returned nil before Init")
	}
	// must not panic
	l.Info("noop")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"development", zapcore.DebugLevel},
		{"production", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit(t *testing.T) {
	err := Init(&Config{Level: "info", ServiceName: "test", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Sync()

	if Get() == nil {
		t.Fatal("Get() returned nil after Init")
	}
	Get().With().Debug("hidden at info level")
}
