package errors

import (
	"context"
	"errors"
	"strings"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// FromStoreError classifies a raw error returned by a remote store client.
// Errors that are already classified pass through unchanged.
func FromStoreError(err error, operation, collection string) error {
	if err == nil {
		return nil
	}

	var existing *UnifiedError
	if errors.As(err, &existing) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Transport(CodeCanceled.String(), "request canceled").
			WithOperation(operation).
			WithResource(collection).
			WithCause(err).
			Build()
	}

	msg := err.Error()
	if strings.Contains(msg, uniqueViolation) || strings.Contains(strings.ToLower(msg), "duplicate key") {
		return Conflict(CodeLikeAlreadyExists.String(), "record already exists").
			WithOperation(operation).
			WithResource(collection).
			WithCause(err).
			Build()
	}

	return Transport(CodeTransportFailed.String(), "remote store call failed").
		WithOperation(operation).
		WithResource(collection).
		WithCause(err).
		Build()
}
