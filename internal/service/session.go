package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/middleware"
	"github.com/mmynk/caltrack/internal/session"
)

// gatewayFrom returns the gateway of the request's session.
func gatewayFrom(ctx context.Context) (*session.Gateway, error) {
	c := middleware.ClientFrom(ctx)
	if c == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return c.Gateway, nil
}

// parseDay accepts YYYY-MM-DD or empty for today.
func parseDay(s string) (calendar.Day, error) {
	if s == "" {
		return "", nil
	}
	day, err := calendar.ParseDay(s)
	if err != nil {
		return "", apperr.Invalid("date %q must be YYYY-MM-DD", s)
	}
	return day, nil
}
