package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

const colorReset = "\033[0m"

// ColorTextHandler formats records with slog.TextHandler and prefixes each
// line with the level name in an ANSI color. The escape codes are written
// outside the text encoding so they are not quoted.
type ColorTextHandler struct {
	text *slog.TextHandler
	out  io.Writer
	mu   *sync.Mutex
	buf  *bytes.Buffer
}

// NewColorTextHandler builds a ColorTextHandler. With showTime false the
// time attribute is omitted.
func NewColorTextHandler(w io.Writer, opts *slog.HandlerOptions, showTime bool) *ColorTextHandler {
	o := slog.HandlerOptions{}
	if opts != nil {
		o = *opts
	}
	next := o.ReplaceAttr
	o.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 {
			if a.Key == slog.LevelKey || (!showTime && a.Key == slog.TimeKey) {
				return slog.Attr{}
			}
		}
		if next != nil {
			return next(groups, a)
		}
		return a
	}
	buf := &bytes.Buffer{}
	return &ColorTextHandler{
		text: slog.NewTextHandler(buf, &o),
		out:  w,
		mu:   &sync.Mutex{},
		buf:  buf,
	}
}

func levelColor(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "\033[31m"
	case l >= slog.LevelWarn:
		return "\033[33m"
	case l >= slog.LevelInfo:
		return "\033[32m"
	default:
		return "\033[36m"
	}
}

func (h *ColorTextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.text.Enabled(ctx, l)
}

func (h *ColorTextHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.Reset()
	if err := h.text.Handle(ctx, r); err != nil {
		return err
	}
	line := make([]byte, 0, h.buf.Len()+24)
	line = append(line, levelColor(r.Level)...)
	line = append(line, r.Level.String()...)
	line = append(line, colorReset...)
	line = append(line, ' ')
	line = append(line, h.buf.Bytes()...)
	_, err := h.out.Write(line)
	return err
}

func (h *ColorTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.text = h.text.WithAttrs(attrs).(*slog.TextHandler)
	return &c
}

func (h *ColorTextHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.text = h.text.WithGroup(name).(*slog.TextHandler)
	return &c
}
