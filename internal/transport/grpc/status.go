package grpctransport

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/learnkeeper/internal/errs"
)

var kindCodes = []struct {
	kind error
	code codes.Code
}{
	{errs.ErrValidation, codes.InvalidArgument},
	{errs.ErrNotFound, codes.NotFound},
	{errs.ErrUnauthorized, codes.Unauthenticated},
	{errs.ErrForbidden, codes.PermissionDenied},
	{errs.ErrAlreadyExists, codes.AlreadyExists},
	{errs.ErrRateLimited, codes.ResourceExhausted},
}

// toStatus maps a service error onto a gRPC status carrying its message.
// ok is false for unclassified errors, which are reported as Internal
// without detail.
func toStatus(err error) (st error, ok bool) {
	if err == nil {
		return nil, true
	}
	if _, isStatus := status.FromError(err); isStatus {
		return err, true
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return status.Error(kc.code, errs.Message(err)), true
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error()), true
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error()), true
	}
	return status.Error(codes.Internal, "internal error"), false
}

// fromStatus maps a gRPC status back onto the errs sentinels, keeping the
// server's message as the error text.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if st.Code() == codes.InvalidArgument {
		return errs.Validation(st.Message())
	}
	for _, kc := range kindCodes {
		if st.Code() == kc.code {
			return errs.WithMessage(kc.kind, st.Message())
		}
	}
	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return err
}
