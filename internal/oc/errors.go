package oc

import (
	"context"
	"errors"

	"github.com/containerd/errdefs"
	"go.opencensus.io/trace"
)

func toStatusCode(err error) int32 {
	switch {
	case checkErrors(err, context.Canceled):
		return trace.StatusCodeCancelled
	case checkErrors(err, context.DeadlineExceeded):
		return trace.StatusCodeDeadlineExceeded
	case errdefs.IsInvalidArgument(err):
		return trace.StatusCodeInvalidArgument
	case errdefs.IsNotFound(err):
		return trace.StatusCodeNotFound
	case errdefs.IsAlreadyExists(err):
		return trace.StatusCodeAlreadyExists
	case errdefs.IsFailedPrecondition(err):
		return trace.StatusCodeFailedPrecondition
	case errdefs.IsUnavailable(err):
		return trace.StatusCodeUnavailable
	case errdefs.IsNotImplemented(err):
		return trace.StatusCodeUnimplemented
	default:
		return trace.StatusCodeUnknown
	}
}

func checkErrors(err error, errs ...error) bool {
	for _, e := range errs {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
