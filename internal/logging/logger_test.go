package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{name: "default config", config: nil, want: "text"},
		{
			name:   "json format",
			config: &Config{Level: LevelInfo, Format: "json", Output: &bytes.Buffer{}},
			want:   "json",
		},
		{
			name:   "text format",
			config: &Config{Level: LevelDebug, Format: "text", Output: &bytes.Buffer{}},
			want:   "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("NewLogger() returned nil")
			}
			if logger.format != tt.want {
				t.Errorf("format = %q, want %q", logger.format, tt.want)
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Format: "text", Output: &buf, NoColor: true}
	logger := NewLogger(config)

	sessionLogger := logger.WithSession(1)
	sessionLogger.Info("session opened")

	output := buf.String()
	if !strings.Contains(output, "session=1") {
		t.Errorf("expected session=1 in output, got: %s", output)
	}

	buf.Reset()
	chanLogger := sessionLogger.WithChannel(3)
	chanLogger.Info("fragment delivered")

	output = buf.String()
	if !strings.Contains(output, "session=1") {
		t.Errorf("expected session=1 in chained output, got: %s", output)
	}
	if !strings.Contains(output, "channel=3") {
		t.Errorf("expected channel=3 in output, got: %s", output)
	}
}

func TestLoggerWithFragment(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf, NoColor: true})

	fragLogger := logger.WithChannel(2).WithFragment(5)
	fragLogger.Debug("processing fragment")

	output := buf.String()
	if !strings.Contains(output, "channel=2") || !strings.Contains(output, "seq=5") {
		t.Errorf("expected channel=2 seq=5 in output, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf, NoColor: true})

	testErr := errors.New("bad fragment")
	errorLogger := logger.WithError(testErr)
	errorLogger.Error("rx discard")

	output := buf.String()
	if !strings.Contains(output, "bad fragment") {
		t.Errorf("expected 'bad fragment' in output, got: %s", output)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf, NoColor: true}))

	Debug("debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") || !strings.Contains(output, "key=value") {
		t.Errorf("expected debug message with key=value, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Errorf("expected info message, got: %s", buf.String())
	}

	buf.Reset()
	Warn("warning message")
	if !strings.Contains(buf.String(), "warning message") {
		t.Errorf("expected warning message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Format: "text", Output: &buf, NoColor: true})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn output, got: %s", buf.String())
	}
}
