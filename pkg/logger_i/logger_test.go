package logger_i

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/akolanti/DocQA/internal/config"
)

func TestFromSlog_RoutesToSink(t *testing.T) {
	var buf bytes.Buffer
	sink := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log := FromSlog(sink, "extractor")
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-42")
	log.WithTrace(ctx).Warn("no match", "passage_id", "doc-1")

	out := buf.String()
	for _, want := range []string{"component=extractor", "traceId=trace-42", "passage_id=doc-1", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level  string
		isProd bool
		want   slog.Level
	}{
		{"debug", true, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"", true, config.LOG_LEVEL_PROD},
		{"", false, slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.level, tt.isProd); got != tt.want {
			t.Errorf("parseLevel(%q, %v) = %v; want %v", tt.level, tt.isProd, got, tt.want)
		}
	}
}

func TestWithTrace_NoTrace(t *testing.T) {
	log := NewDiscardLogger()
	if log.WithTrace(context.Background()) != log {
		t.Error("expected the same logger when the context has no trace id")
	}
}
