package logging

import (
	"context"
	"errors"
	"log/slog"
)

// SessionSnapshot reports the AR session fields stamped on every record.
// ok is false until the session and its history exist.
type SessionSnapshot func() (state string, historyLen int, ok bool)

// sessionHandler is the root handler built by Setup. It stamps each record
// with the session snapshot once, then hands a copy to every output that
// accepts the level.
type sessionHandler struct {
	outputs  []slog.Handler
	snapshot SessionSnapshot
}

func newSessionHandler(snapshot SessionSnapshot, outputs ...slog.Handler) *sessionHandler {
	h := &sessionHandler{snapshot: snapshot}
	for _, o := range outputs {
		if o != nil {
			h.outputs = append(h.outputs, o)
		}
	}
	return h
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, o := range h.outputs {
		if o.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes to every enabled output; one failing output does not stop
// the others and all failures are returned together.
func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.snapshot != nil {
		if state, n, ok := h.snapshot(); ok {
			r.AddAttrs(slog.String("session_state", state), slog.Int("history_len", n))
		}
	}

	var errs []error
	for _, o := range h.outputs {
		if !o.Enabled(ctx, r.Level) {
			continue
		}
		if err := o.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithAttrs(attrs) })
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(func(o slog.Handler) slog.Handler { return o.WithGroup(name) })
}

func (h *sessionHandler) derive(fn func(slog.Handler) slog.Handler) *sessionHandler {
	outputs := make([]slog.Handler, len(h.outputs))
	for i, o := range h.outputs {
		outputs[i] = fn(o)
	}
	return &sessionHandler{outputs: outputs, snapshot: h.snapshot}
}
