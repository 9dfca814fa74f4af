// Package handlers serves the local JSON API over the engine seams.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/internal/interfaces/http/middleware"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// handleServiceError converts engine errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperrors.StatusCode(err)

	var unified *apperrors.UnifiedError
	if !apperrors.As(err, &unified) {
		logger.Error("Unclassified error",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		api.ErrorWithCode(w, http.StatusInternalServerError, apperrors.CodeInternalError.String(), "An internal error occurred")
		return
	}

	message := unified.Message
	if status == http.StatusBadRequest && unified.Details != "" {
		message += ": " + unified.Details
	}

	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("code", unified.Code),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch apperrors.GetSeverity(err) {
	case apperrors.SeverityCritical:
		logger.Error("Request failed", fields...)
	case apperrors.SeverityHigh:
		logger.Warn("Request failed", fields...)
	default:
		logger.Debug("Request rejected", fields...)
	}

	api.ErrorWithCode(w, status, unified.Code, message)
}
