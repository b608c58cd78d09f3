package logger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/subaccounts/notes-server/internal/domain"
)

// componentKey is lifted out of the attributes and printed as a tag.
const componentKey = "component"

var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// palette holds the escape sequences used by PrettyHandler.
type palette struct {
	reset, dim, bold, attrs, tag string
	debug, info, warn, err, other string
}

var (
	ansi = palette{
		reset: "\033[0m", dim: "\033[2m", bold: "\033[1m", attrs: "\033[36m", tag: "\033[34m",
		debug: "\033[35m", info: "\033[32m", warn: "\033[33m", err: "\033[31m", other: "\033[37m",
	}
	plain = palette{}
)

// PrettyHandler writes one human-readable line per record:
//
//	15:04:05 INF [notes] note created note_id=note-1 owner=0xA11C...0001
//
// Hex addresses are shortened and values containing spaces are quoted.
type PrettyHandler struct {
	opts      *slog.HandlerOptions
	writer    io.Writer
	mu        *sync.Mutex
	colors    palette
	component string
	attrs     []slog.Attr // already qualified with groups
	groups    []string
}

// NewPrettyHandler creates a coloured handler writing to w.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: opts, writer: w, mu: &sync.Mutex{}, colors: ansi}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes the record.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	c := h.colors
	var b strings.Builder

	b.WriteString(c.dim + r.Time.Format(time.TimeOnly) + c.reset + " ")

	label, color := h.levelLabel(r.Level)
	b.WriteString(color + label + c.reset + " ")

	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(c.dim + filepath.Base(f.File) + ":" + strconv.Itoa(f.Line) + c.reset + " ")
	}

	component := h.component
	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == componentKey && len(h.groups) == 0 {
			component = a.Value.String()
			return true
		}
		attrs = h.appendAttr(attrs, h.groups, a)
		return true
	})

	if component != "" {
		b.WriteString(c.tag + "[" + component + "]" + c.reset + " ")
	}
	b.WriteString(c.bold + r.Message + c.reset)

	if len(attrs) > 0 {
		b.WriteString(" " + c.attrs)
		for i, a := range attrs {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(a.Key + "=" + formatValue(a.Value))
		}
		b.WriteString(c.reset)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == componentKey && len(h.groups) == 0 {
			next.component = a.Value.String()
			continue
		}
		next.attrs = h.appendAttr(next.attrs, h.groups, a)
	}
	return next
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(slices.Clone(h.groups), name)
	return next
}

func (h *PrettyHandler) clone() *PrettyHandler {
	next := *h
	next.attrs = slices.Clone(h.attrs)
	return &next
}

// appendAttr flattens groups into dotted keys, e.g. stats.dropped=1.
func (h *PrettyHandler) appendAttr(dst []slog.Attr, groups []string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := groups
		if a.Key != "" {
			inner = append(slices.Clone(groups), a.Key)
		}
		for _, ga := range a.Value.Group() {
			dst = h.appendAttr(dst, inner, ga)
		}
		return dst
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, slog.Attr{Key: key, Value: a.Value})
}

func (h *PrettyHandler) levelLabel(level slog.Level) (label, color string) {
	c := h.colors
	switch level {
	case slog.LevelDebug:
		return "DBG", c.debug
	case slog.LevelInfo:
		return "INF", c.info
	case slog.LevelWarn:
		return "WRN", c.warn
	case slog.LevelError:
		return "ERR", c.err
	default:
		return level.String(), c.other
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		s := v.String()
		if hexAddress.MatchString(s) {
			return domain.ShortAccount(s)
		}
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
