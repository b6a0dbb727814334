//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"telegram-channel-subscription/internal/config"
)

func TestWithAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "debug", Format: "json"}, false, &buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithTgID(ctx, 42)
	ctx = WithChannelID(ctx, -100)
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json log line, got %q: %v", buf.String(), err)
	}
	if line["trace_id"] != "trace-1" {
		t.Errorf("expected trace_id, got %v", line["trace_id"])
	}
	if line["tg_id"] != float64(42) || line["channel_id"] != float64(-100) {
		t.Errorf("expected ids in log line, got %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
	base.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
	base.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn line to be written")
	}
}

func TestNewTraceIDIsUnique(t *testing.T) {
	a, b := NewTraceID(), NewTraceID()
	if a == b || len(a) != 26 {
		t.Errorf("expected two distinct 26-char ULIDs, got %q %q", a, b)
	}
}
