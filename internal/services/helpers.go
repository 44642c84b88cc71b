package services

import (
	"context"
	"errors"

	apperrors "github.com/campuskit/rollcall/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// rejectReason resolves the audit reason for a validation reject. It returns
// false for storage faults and other internal errors, which are not owed an
// audit entry.
func rejectReason(err error) (string, bool) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return "", false
	}
	reason, ok := rejectReasons[appErr.Code]
	return reason, ok
}
