package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestQrgHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "space created",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tspace created\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "interpreter output",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tinterpreter output\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "item moved",
			attrs:   []slog.Attr{slog.String("item", "Hammer"), slog.Int64("space_id", 3)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\titem moved\titem=Hammer\tspace_id=3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &qrgHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestQrgHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &qrgHandler{w: &buf, opID: "op-1", min: slog.LevelDebug}

	logger := slog.New(h).With("component", "vault").WithGroup("s3")
	logger.Info("upload", "key", "abc")

	got := buf.String()
	for _, want := range []string{"\tcomponent=vault", "\ts3.key=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestQrgHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	h := &qrgHandler{opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*qrgHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestQrgHandler_Enabled(t *testing.T) {
	h := &qrgHandler{min: slog.LevelWarn}
	tests := map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  false,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	}
	for level, want := range tests {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("quiet on console")
	logger.Warn("loud on console")

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "quiet on console") || !strings.Contains(string(data), "loud on console") {
		t.Errorf("log file = %q, want both records", data)
	}
	if strings.Contains(console.String(), "quiet on console") {
		t.Errorf("console got info record: %q", console.String())
	}
	if !strings.Contains(console.String(), "\tWARN\ttest-op\tloud on console") {
		t.Errorf("console = %q, want warning", console.String())
	}
}
