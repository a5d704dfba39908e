package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","component":"state","op":"approve borrow","error":"Not enough items available","time":"2025-10-08T21:01:05Z","message":"mutation failed"}`
	got := Parse(line)

	want := Entry{
		Time:      time.Date(2025, 10, 8, 21, 1, 5, 0, time.UTC),
		Level:     zerolog.WarnLevel,
		Component: "state",
		Message:   "mutation failed",
		Error:     "Not enough items available",
		Fields:    []string{"op=approve borrow"},
	}
	if !got.Time.Equal(want.Time) {
		t.Fatalf("Time = %v, want %v", got.Time, want.Time)
	}
	got.Time = want.Time
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse() = %+v, want %+v", got, want)
	}
}

func TestParse_NonJSONIsRaw(t *testing.T) {
	got := Parse("panic: runtime error")
	if !got.Raw || got.Message != "panic: runtime error" {
		t.Fatalf("Parse() = %+v, want raw entry", got)
	}
	if got.Format() != "panic: runtime error" {
		t.Fatalf("Format() = %q", got.Format())
	}
}

func TestEntryFormat(t *testing.T) {
	e := Entry{
		Level:     zerolog.InfoLevel,
		Component: "session",
		Message:   "logged in",
		Fields:    []string{"admin=true", "user_id=u1"},
	}
	want := "INFO  [session] logged in admin=true user_id=u1"
	if got := e.Format(); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}

	e = Entry{Level: zerolog.ErrorLevel, Message: "state load failed", Error: "boom"}
	want = "ERROR state load failed: boom"
	if got := e.Format(); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestReadEntries_FiltersByLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olilab.log")
	lines := []string{
		`{"level":"debug","message":"noise"}`,
		`{"level":"info","component":"state","message":"state loaded"}`,
		``,
		`not json`,
		`{"level":"error","message":"mutation failed"}`,
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := ReadEntries(path, 0, zerolog.InfoLevel)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	want := []string{"state loaded", "not json", "mutation failed"}
	if !reflect.DeepEqual(messages, want) {
		t.Fatalf("messages = %v, want %v", messages, want)
	}
}
