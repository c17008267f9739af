package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLast(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var event map[string]any
	if err := json.Unmarshal(lines[len(lines)-1], &event); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", lines[len(lines)-1], err)
	}
	return event
}

func TestZerologAdapter_Fields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewLogger(&buf, "bench")

	logger.Info("multiplied",
		String("algorithm", "strassen"),
		Int("n", 256),
		Uint64("seed", 7),
		Float64("gflops", 1.5),
		Duration("elapsed", 3*time.Millisecond),
	)
	event := decodeLast(t, &buf)

	if event["component"] != "bench" {
		t.Errorf("expected component bench, got %v", event["component"])
	}
	if event["message"] != "multiplied" {
		t.Errorf("expected message multiplied, got %v", event["message"])
	}
	if event["algorithm"] != "strassen" || event["n"] != float64(256) || event["seed"] != float64(7) {
		t.Errorf("unexpected fields: %v", event)
	}
	if event["level"] != "info" {
		t.Errorf("expected level info, got %v", event["level"])
	}
	if _, ok := event["elapsed"]; !ok {
		t.Error("expected elapsed field")
	}
}

func TestZerologAdapter_Error(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewZerologAdapter(zerolog.New(&buf))

	logger.Error("solve failed", errors.New("singular"), String("mode", "jacobi"))
	event := decodeLast(t, &buf)
	if event["error"] != "singular" || event["mode"] != "jacobi" || event["level"] != "error" {
		t.Errorf("unexpected error event: %v", event)
	}
}

func TestZerologAdapter_Printf(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewZerologAdapter(zerolog.New(&buf))

	logger.Printf("listening on %s", ":8080")
	if got := decodeLast(t, &buf)["message"]; got != "listening on :8080" {
		t.Errorf("expected %q, got %v", "listening on :8080", got)
	}
	logger.Println("GET", "/health")
	if got := decodeLast(t, &buf)["message"]; got != "GET /health" {
		t.Errorf("expected %q, got %v", "GET /health", got)
	}
}

func TestSetGlobalLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	if err := SetGlobalLevel("WARN"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn, got %v", zerolog.GlobalLevel())
	}
	if err := SetGlobalLevel(""); err != nil || zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info for empty name, got %v (%v)", zerolog.GlobalLevel(), err)
	}
	if err := SetGlobalLevel("loud"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
