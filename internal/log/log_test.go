package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestInfoFormatsKeyValues(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("course planned", "course", "yoga-101", "end_date", "2024-01-22", "name", "Morning Yoga", "dangling")

	line := buf.String()
	for _, want := range []string{"[INFO] course planned", "course=yoga-101", "end_date=2024-01-22", `name="Morning Yoga"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "dangling") {
		t.Fatalf("odd trailing value must be dropped: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelError)

	Debug("hidden")
	Info("hidden too")
	Error("plan failed", errors.New("boom"), "course", "x")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("lower levels leaked: %q", out)
	}
	if !strings.Contains(out, "[ERROR] plan failed err=boom course=x") {
		t.Fatalf("unexpected error line: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":  LevelDebug,
		" INFO ": LevelInfo,
		"error":  LevelError,
		"":       LevelInfo,
		"trace":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
