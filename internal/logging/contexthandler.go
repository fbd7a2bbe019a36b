package logging

import (
	"context"
	"log/slog"
)

// AttrsFunc returns attributes that change over the process lifetime,
// such as the current scene.
type AttrsFunc func() []slog.Attr

// ContextHandler wraps another handler and appends the attributes of an
// AttrsFunc to every record at the time it is handled.
type ContextHandler struct {
	inner slog.Handler
	attrs AttrsFunc
}

// NewContextHandler creates a ContextHandler.
func NewContextHandler(inner slog.Handler, attrs AttrsFunc) *ContextHandler {
	return &ContextHandler{inner: inner, attrs: attrs}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.attrs != nil {
		if attrs := h.attrs(); len(attrs) > 0 {
			r.AddAttrs(attrs...)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), attrs: h.attrs}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), attrs: h.attrs}
}
