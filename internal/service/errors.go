package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/session"
	"github.com/mmynk/caltrack/internal/storage"
)

// toConnectError maps domain errors onto Connect codes. Unknown errors are
// internal.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	code := connect.CodeInternal
	switch {
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrOutOfRange),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidEmail):
		code = connect.CodeInvalidArgument
	case errors.Is(err, apperr.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, session.ErrProfileExists),
		errors.Is(err, auth.ErrEmailExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, apperr.ErrConflict):
		code = connect.CodeAborted
	case errors.Is(err, session.ErrNoProfile):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, session.ErrSignedOut),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidIDToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken):
		code = connect.CodeUnauthenticated
	case errors.Is(err, apperr.ErrBackendUnavailable),
		errors.Is(err, session.ErrLoading):
		code = connect.CodeUnavailable
	case errors.Is(err, auth.ErrFederatedDisabled):
		code = connect.CodeUnimplemented
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case storage.IsTransient(err):
		code = connect.CodeUnavailable
	}
	return connect.NewError(code, err)
}
