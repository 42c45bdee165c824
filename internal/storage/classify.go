package storage

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/mmynk/caltrack/internal/apperr"
)

// transientMarkers are substrings of driver errors that indicate the backend
// could not be reached or was momentarily busy, rather than a bad request.
var transientMarkers = []string{
	"database is locked",
	"SQLITE_BUSY",
	"connection refused",
	"connection reset",
	"broken pipe",
	"failed to connect",
	"conn closed",
	"i/o timeout",
}

// Classify wraps err with apperr.ErrBackendUnavailable when it looks
// transient. Not-found and already-classified errors pass through unchanged.
func Classify(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, apperr.ErrBackendUnavailable) {
		return err
	}
	if IsTransient(err) {
		return apperr.Unavailable(op, err)
	}
	return err
}

// IsTransient reports whether err is a timeout, network failure or busy database.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
