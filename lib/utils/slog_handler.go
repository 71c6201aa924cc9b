package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

type ColorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func NewColorHandler() *ColorHandler {
	return NewColorHandlerWithOptions(os.Stderr, slog.LevelInfo)
}

func NewColorHandlerWithOptions(out io.Writer, level slog.Leveler) *ColorHandler {
	return &ColorHandler{mu: &sync.Mutex{}, out: out, level: level}
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(Gray.Render(r.Time.Format(time.TimeOnly)))
	b.WriteByte(' ')

	switch {
	case r.Level >= slog.LevelError:
		b.WriteString(ErrorWithBackground.Render("✗ ERROR") + " " + Fail.Render(r.Message))
	case r.Level >= slog.LevelWarn:
		b.WriteString(WarningWithBackground.Render("WARNING") + " " + Warning.Render(r.Message))
	case r.Level >= slog.LevelInfo:
		b.WriteString(Default.Render(r.Message))
	default:
		b.WriteString(Muted.Render(r.Message))
	}

	for _, a := range h.attrs {
		h.writeAttr(&b, a)
	}

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, a)
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintln(h.out, b.String())
	return err
}

func (h *ColorHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	b.WriteString(" " + Muted.Render(key) + "=" + fmt.Sprintf("%v", a.Value.Any()))
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clone(h.attrs), attrs...)
	return &clone
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}
