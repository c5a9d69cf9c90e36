// Package oc holds the opencensus helpers used to trace remote commands.
package oc

import (
	"context"

	"go.opencensus.io/trace"
)

// DefaultSampler is the sampler used for every span started by this module.
var DefaultSampler = trace.AlwaysSample()

// StartSpan starts a span named name with the default sampler.
func StartSpan(ctx context.Context, name string, o ...trace.StartOption) (context.Context, *trace.Span) {
	return trace.StartSpan(ctx, name, append(o, trace.WithSampler(DefaultSampler))...)
}

// SetSpanStatus sets the status of span from err. A nil err is a no-op.
func SetSpanStatus(span *trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetStatus(trace.Status{Code: toStatusCode(err), Message: err.Error()})
}
