// Package log wraps logrus with a context-carried entry, so commands issued
// for a VM or switch keep their fields across helper calls.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type entryContextKeyType int

const entryContextKey entryContextKeyType = iota

// L is the default entry, used when the context does not carry one.
var L = logrus.NewEntry(logrus.StandardLogger())

// G returns the entry stored in ctx, or L. The returned entry has ctx set so
// hooks can read the active span.
func G(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(entryContextKey).(*logrus.Entry); ok {
		return e.WithContext(ctx)
	}
	return L.WithContext(ctx)
}

// WithEntry returns a context that carries e.
func WithEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryContextKey, e)
}

// WithFields returns a context whose entry has fields added, together with
// that entry.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, *logrus.Entry) {
	e := G(ctx).WithFields(fields)
	return WithEntry(ctx, e), e
}

// UpdateContext is WithFields without the entry.
func UpdateContext(ctx context.Context, fields logrus.Fields) context.Context {
	ctx, _ = WithFields(ctx, fields)
	return ctx
}
