package logger

import (
	"context"
	"log/slog"
)

// ctxKey is private so other packages cannot collide with these keys.
type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyCycle
)

// WithRequestID stores the HTTP correlation id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestID returns the correlation id, or "" when the context carries none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// WithCycle stores the dispatch loop's cycle number in the context so every
// record logged during that cycle can be grouped.
func WithCycle(ctx context.Context, n uint64) context.Context {
	return context.WithValue(ctx, ctxKeyCycle, n)
}

// Cycle returns the cycle number and whether the context carries one.
func Cycle(ctx context.Context) (uint64, bool) {
	n, ok := ctx.Value(ctxKeyCycle).(uint64)
	return n, ok
}

// ctxHandler copies correlation values from the context onto each record.
// It sits outermost in the handler chain so enrichment happens before any
// async boundary discards the context.
type ctxHandler struct {
	next slog.Handler
}

func (c *ctxHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c *ctxHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	var attrs []slog.Attr
	if id := RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if n, ok := Cycle(ctx); ok {
		attrs = append(attrs, slog.Uint64("cycle", n))
	}
	if len(attrs) > 0 {
		rec = rec.Clone()
		rec.AddAttrs(attrs...)
	}
	return c.next.Handle(ctx, rec)
}

func (c *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{next: c.next.WithAttrs(attrs)}
}

func (c *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{next: c.next.WithGroup(name)}
}
