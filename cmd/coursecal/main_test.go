package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunComputePrintsSchedule(t *testing.T) {
	var out bytes.Buffer
	code := run(flagConfig{
		start:    "2024-01-01",
		sessions: 3,
		days:     "mon",
		exclude:  "2024-01-15",
	}, &out)
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	want := "end_date=2024-01-29\n" +
		"session 1 2024-01-08 Mon\n" +
		"session 2 2024-01-22 Mon\n" +
		"session 3 2024-01-29 Mon\n"
	if out.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRunComputeExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		flags flagConfig
		want  int
	}{
		{name: "zero sessions", flags: flagConfig{start: "2024-01-01", sessions: 0, days: "mon"}, want: exitInvalid},
		{name: "no weekdays", flags: flagConfig{start: "2024-01-01", sessions: 1}, want: exitInvalid},
		{name: "malformed start", flags: flagConfig{start: "01.01.2024", sessions: 1, days: "mon"}, want: exitInvalid},
		{
			name:  "unreachable",
			flags: flagConfig{start: "2024-01-01", sessions: 1, days: "mon", exclude: "2024-01-08", maxScan: 7},
			want:  exitUnreachable,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			if got := run(tc.flags, &out); got != tc.want {
				t.Fatalf("exit code = %d, want %d", got, tc.want)
			}
			if out.Len() != 0 {
				t.Fatalf("no output expected on failure, got %q", out.String())
			}
		})
	}
}

func TestRunComputeWritesICS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.ics")
	var out bytes.Buffer
	code := run(flagConfig{
		start:     "2024-01-01",
		sessions:  2,
		days:      "mon,wed",
		icsOut:    path,
		recurring: true,
	}, &out)
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read ics: %v", err)
	}
	if !strings.Contains(string(body), "RRULE:FREQ=WEEKLY;UNTIL=20240108;BYDAY=MO,WE") {
		t.Fatalf("unexpected ics:\n%s", body)
	}
}

func TestRunOnceWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "timezone: UTC\n" +
		"output_dir: " + filepath.Join(dir, "out") + "\n" +
		"cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"courses:\n" +
		"  - id: pottery\n" +
		"    start_date: \"2024-03-01\"\n" +
		"    sessions: 4\n" +
		"    weekdays: [saturday]\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if code := run(flagConfig{configPath: cfgPath, once: true}, &bytes.Buffer{}); code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	body, err := os.ReadFile(filepath.Join(dir, "out", "pottery.ics"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	// Saturdays after 2024-03-01: 02, 09, 16, 23.
	if !strings.Contains(string(body), "DTSTART;VALUE=DATE:20240323") {
		t.Fatalf("missing final session:\n%s", body)
	}
}

func TestRunFailsOnBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("refresh: \"not a cron\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code := run(flagConfig{configPath: cfgPath, once: true}, &bytes.Buffer{}); code != exitConfig {
		t.Fatalf("exit code = %d, want %d", code, exitConfig)
	}
}
