package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLoggerLevels(t *testing.T) {
	log, buf := newBufLogger()
	ctx := context.Background()

	log.Debug(ctx, "d")
	log.Info(ctx, "i")
	log.Warn(ctx, "w")
	log.Error(ctx, "e")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}

	wantLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, line := range lines {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if rec["level"] != wantLevels[i] {
			t.Errorf("line %d: level = %v, want %v", i, rec["level"], wantLevels[i])
		}
	}
}

func TestSlogLoggerWith(t *testing.T) {
	log, buf := newBufLogger()

	child := log.With("module", "api")
	child.Info(context.Background(), "hello")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["module"] != "api" {
		t.Errorf("module = %v, want api", rec["module"])
	}
}
