package logging

import (
	"context"
	"errors"
	"log/slog"
)

// AttrFunc supplies attributes resolved when a record is emitted, such
// as the active scenario name and the current simulation tick.
type AttrFunc func() []slog.Attr

// teeHandler delivers each record to every sink, appending the dynamic
// attributes on the way through. Nil sinks are dropped at construction
// so callers can pass optional handlers unconditionally.
type teeHandler struct {
	sinks []slog.Handler
	attrs AttrFunc
}

func newTeeHandler(attrs AttrFunc, sinks ...slog.Handler) *teeHandler {
	t := &teeHandler{attrs: attrs}
	for _, s := range sinks {
		if s != nil {
			t.sinks = append(t.sinks, s)
		}
	}
	return t
}

// Enabled reports whether any sink would accept a record at level.
func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range t.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle appends the dynamic attributes and delivers the record to
// every enabled sink. A failing sink does not stop delivery to the
// others; the errors are joined.
func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if t.attrs != nil {
		r.AddAttrs(t.attrs()...)
	}
	var errs []error
	for _, s := range t.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, s := range t.sinks {
		sinks[i] = s.WithAttrs(attrs)
	}
	return &teeHandler{sinks: sinks, attrs: t.attrs}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	sinks := make([]slog.Handler, len(t.sinks))
	for i, s := range t.sinks {
		sinks[i] = s.WithGroup(name)
	}
	return &teeHandler{sinks: sinks, attrs: t.attrs}
}
