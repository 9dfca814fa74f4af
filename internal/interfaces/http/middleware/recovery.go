package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	apperrors "github.com/vertixec/THEARCHIVE/internal/errors"
	"github.com/vertixec/THEARCHIVE/pkg/api"
)

// Recovery turns a panic into a 500 response and logs it with the stack.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					requestID := GetRequestID(r.Context())
					panicErr := apperrors.Internal(apperrors.CodeInternalError.String(), "panic while serving request").
						WithOperation(r.Method + " " + r.URL.Path).
						WithRequestID(requestID).
						WithSeverity(apperrors.SeverityCritical).
						WithDetails(fmt.Sprint(err)).
						Build()
					logger.Error("Panic while serving request",
						zap.String("request_id", requestID),
						zap.String("path", r.URL.Path),
						zap.Error(panicErr),
						zap.ByteString("stack", debug.Stack()),
					)

					// Headers already sent means the body is partially written.
					if w.Header().Get("Content-Type") == "" {
						api.ErrorWithCode(w, http.StatusInternalServerError, panicErr.Code, "Internal server error")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
