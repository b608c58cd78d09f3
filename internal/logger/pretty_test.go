package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlain(buf *bytes.Buffer, opts *slog.HandlerOptions) *PrettyHandler {
	h := NewPrettyHandler(buf, opts)
	h.colors = plain
	return h
}

func TestPrettyHandler_Enabled(t *testing.T) {
	ctx := context.Background()

	warn := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, warn.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warn.Enabled(ctx, slog.LevelError))

	defaults := NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.False(t, defaults.Enabled(ctx, slog.LevelDebug))
	assert.True(t, defaults.Enabled(ctx, slog.LevelInfo))
}

func TestPrettyHandler_Line(t *testing.T) {
	var buf bytes.Buffer
	h := newPlain(&buf, nil)

	r := slog.NewRecord(time.Date(2025, 1, 2, 13, 4, 5, 0, time.UTC), slog.LevelWarn, "dropping event", 0)
	r.AddAttrs(
		slog.String("component", "sse"),
		slog.String("type", "note.tipped"),
		slog.Duration("waited", 2*time.Second),
	)
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "13:04:05 WRN [sse] dropping event type=note.tipped waited=2s\n", buf.String())
}

func TestPrettyHandler_ShortensAddresses(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPlain(&buf, nil))

	log.Info("tip", "from", "0xA11CE00000000000000000000000000000000001", "tx", "0xabc")

	out := buf.String()
	assert.Contains(t, out, "from=0xA11C...0001")
	assert.Contains(t, out, "tx=0xabc")
}

func TestPrettyHandler_QuotesValues(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPlain(&buf, nil))

	log.Info("note created", "title", "Gas costs", "author", "")

	out := buf.String()
	assert.Contains(t, out, `title="Gas costs"`)
	assert.Contains(t, out, `author=""`)
}

func TestPrettyHandler_ComponentAndGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newPlain(&buf, nil))

	log.With("component", "sse").WithGroup("event").Info("broadcast",
		"type", "note.created",
		slog.Group("stats", "clients", 2),
	)

	out := buf.String()
	assert.True(t, strings.Contains(out, "[sse] broadcast"), out)
	assert.Contains(t, out, "event.type=note.created")
	assert.Contains(t, out, "event.stats.clients=2")
	assert.NotContains(t, out, "component=")
}

func TestPrettyHandler_WithGroupEmpty(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	assert.Same(t, h, h.WithGroup(""))
}

func TestPrettyHandler_WithAttrsDoesNotShareState(t *testing.T) {
	var buf bytes.Buffer
	base := newPlain(&buf, nil)

	slog.New(base.WithAttrs([]slog.Attr{slog.String("note_id", "a")})).Info("one")
	slog.New(base.WithAttrs([]slog.Attr{slog.String("note_id", "b")})).Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "one note_id=a"), lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "two note_id=b"), lines[1])
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newPlain(&buf, &slog.HandlerOptions{AddSource: true})).Info("with source")

	assert.Contains(t, buf.String(), "pretty_test.go:")
}

func TestPrettyHandler_Colors(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewPrettyHandler(&buf, nil)).Error("boom")
	assert.Contains(t, buf.String(), ansi.err+"ERR"+ansi.reset)

	buf.Reset()
	New(Config{Writer: &buf, NoColor: true}).Error("boom")
	assert.NotContains(t, buf.String(), "\033[")
}

func TestPrettyHandler_LevelLabels(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, nil)
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
		{slog.LevelError + 4, "ERROR+4"},
	}
	for _, tt := range tests {
		got, _ := h.levelLabel(tt.level)
		assert.Equal(t, tt.want, got)
	}
}
