// Package logging forwards error level log records to Sentry.
package logging

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

// SentryHandler wraps a slog.Handler and forwards records of level Error and above to Sentry. Records are
// always passed on to the wrapped handler.
type SentryHandler struct {
	slog.Handler

	hub    *sentry.Hub
	attrs  []slog.Attr
	prefix string
}

// NewSentryHandler returns a SentryHandler reporting to the hub passed. If hub is nil, the current hub is
// used.
func NewSentryHandler(h slog.Handler, hub *sentry.Hub) *SentryHandler {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryHandler{Handler: h, hub: hub}
}

// Handle ...
func (h *SentryHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError && h.hub.Client() != nil {
		h.capture(r)
	}
	return h.Handler.Handle(ctx, r)
}

// capture sends the record to Sentry with its attributes as extras.
func (h *SentryHandler) capture(r slog.Record) {
	h.hub.WithScope(func(scope *sentry.Scope) {
		for _, a := range h.attrs {
			scope.SetExtra(a.Key, a.Value.Resolve().Any())
		}
		r.Attrs(func(a slog.Attr) bool {
			v := a.Value.Resolve().Any()
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			scope.SetExtra(h.prefix+a.Key, v)
			return true
		})
		scope.SetLevel(sentry.LevelError)
		h.hub.CaptureMessage(r.Message)
	})
}

// WithAttrs ...
func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefixed := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	prefixed = append(prefixed, h.attrs...)
	for _, a := range attrs {
		prefixed = append(prefixed, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &SentryHandler{Handler: h.Handler.WithAttrs(attrs), hub: h.hub, attrs: prefixed, prefix: h.prefix}
}

// WithGroup ...
func (h *SentryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SentryHandler{Handler: h.Handler.WithGroup(name), hub: h.hub, attrs: h.attrs, prefix: h.prefix + name + "."}
}
