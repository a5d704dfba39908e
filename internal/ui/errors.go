package ui

import (
	"errors"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/session"
)

// errorText turns an operation error into a one-line message.
func errorText(err error) string {
	var conn *api.ConnectionUnavailableError
	var failed *api.RequestFailedError
	switch {
	case errors.As(err, &conn):
		return "Server unreachable at " + conn.URL
	case errors.As(err, &failed):
		return failed.Message
	}
	return err.Error()
}

func loginErrorText(err error) string {
	if errors.Is(err, session.ErrNotApproved) {
		return "Your account is waiting for admin approval."
	}
	return errorText(err)
}
