package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsentHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "Serve-1",
			level:   slog.LevelInfo,
			message: "listening",
			want:    "2024-06-15T14:30:45Z\tINFO\tServe-1\tlistening\n",
		},
		{
			name:    "debug level",
			runID:   "Serve-2",
			level:   slog.LevelDebug,
			message: "request",
			want:    "2024-06-15T14:30:45Z\tDEBUG\tServe-2\trequest\n",
		},
		{
			name:    "with record attrs",
			runID:   "Archive-1",
			level:   slog.LevelInfo,
			message: "archive uploaded",
			attrs:   []slog.Attr{slog.String("site", "shop"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\tArchive-1\tarchive uploaded\tsite=shop\tsize=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newConsentHandler(&buf, tt.runID, nil)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestConsentHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newConsentHandler(&buf, "run-1", nil)

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "web")}).(*consentHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.String("route", "/api/log"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=web") {
		t.Errorf("expected pre-set attr component=web, got: %q", got)
	}
	if !strings.Contains(got, "route=/api/log") {
		t.Errorf("expected record attr route=/api/log, got: %q", got)
	}
}

func TestConsentHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := newConsentHandler(&buf, "run-1", nil)
	h.attrs = []slog.Attr{slog.String("a", "1")}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*consentHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestConsentHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := newConsentHandler(&buf, "run-1", nil).WithGroup("http")

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "request", 0)
	r.AddAttrs(slog.Int("status", 200))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if !strings.Contains(buf.String(), "\thttp.status=200") {
		t.Errorf("expected grouped attr http.status=200, got: %q", buf.String())
	}
}

func TestConsentHandler_Enabled(t *testing.T) {
	all := newConsentHandler(&bytes.Buffer{}, "run-1", nil)
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false with no level set", level)
		}
	}

	warn := newConsentHandler(&bytes.Buffer{}, "run-1", slog.LevelWarn)
	if warn.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(INFO) = true at WARN level")
	}
	if !warn.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(ERROR) = false at WARN level")
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-run", slog.LevelInfo)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
