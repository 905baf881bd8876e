package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/shopfront/pkg/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var codeBySentinel = []struct {
	err  error
	code codes.Code
}{
	{models.ErrValidation, codes.InvalidArgument},
	{models.ErrConflict, codes.AlreadyExists},
	{models.ErrNotFound, codes.NotFound},
	{models.ErrPermissionDenied, codes.PermissionDenied},
	{models.ErrInvalidTransition, codes.FailedPrecondition},
}

// toStatus converts a service error into a status error. Errors outside the
// shared taxonomy become Internal with a generic message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	for _, m := range codeBySentinel {
		if errors.Is(err, m.err) {
			return status.Error(m.code, err.Error())
		}
	}
	return status.Error(codes.Internal, "internal error")
}

// fromStatus restores the sentinel behind a status error so that callers of
// the remote API can keep using errors.Is.
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, m := range codeBySentinel {
		if st.Code() == m.code {
			return fmt.Errorf("%w: %s", m.err, strings.TrimPrefix(st.Message(), m.err.Error()+": "))
		}
	}
	return err
}
