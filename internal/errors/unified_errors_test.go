package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedError_Creation(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() *UnifiedError
		wantType ErrorType
		wantCode string
		wantSev  ErrorSeverity
	}{
		{
			name: "transport failure",
			builder: func() *UnifiedError {
				return Transport(CodeTransportFailed.String(), "read failed").
					WithResource("prompts").
					Build()
			},
			wantType: ErrorTypeTransport,
			wantCode: "TRANSPORT_FAILED",
			wantSev:  SeverityHigh,
		},
		{
			name: "constraint conflict",
			builder: func() *UnifiedError {
				return Conflict(CodeLikeAlreadyExists.String(), "like already exists").Build()
			},
			wantType: ErrorTypeConflict,
			wantCode: "LIKE_ALREADY_EXISTS",
			wantSev:  SeverityLow,
		},
		{
			name: "authentication required",
			builder: func() *UnifiedError {
				return AuthRequired(CodeAuthRequired.String(), "authentication required").Build()
			},
			wantType: ErrorTypeAuthRequired,
			wantCode: "AUTH_REQUIRED",
			wantSev:  SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder()
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantSev, err.Severity)
			assert.NotEmpty(t, err.File)
		})
	}
}

func TestUnifiedError_Classification(t *testing.T) {
	conflict := Conflict(CodeLikeAlreadyExists.String(), "dup").Build()
	transport := Transport(CodeTransportFailed.String(), "down").Build()

	assert.True(t, IsConflict(conflict))
	assert.False(t, IsTransport(conflict))
	assert.True(t, IsTransport(transport))
	assert.True(t, HasCode(conflict, CodeLikeAlreadyExists))
	assert.False(t, IsConflict(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", conflict)
	assert.True(t, IsConflict(wrapped))
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "op", "msg"))
	})

	t.Run("preserves unified type", func(t *testing.T) {
		inner := AuthRequired(CodeAuthRequired.String(), "login first").Build()
		wrapped := Wrap(inner, "toggle", "cannot toggle")
		require.NotNil(t, wrapped)
		assert.Equal(t, ErrorTypeAuthRequired, wrapped.Type)
		assert.Equal(t, "login first", wrapped.Details)
		assert.True(t, errors.Is(wrapped, inner))
	})

	t.Run("unknown errors become transport failures", func(t *testing.T) {
		cause := errors.New("connection reset")
		wrapped := Wrap(cause, "read", "read failed")
		assert.Equal(t, ErrorTypeTransport, wrapped.Type)
		assert.Equal(t, CodeTransportFailed.String(), wrapped.Code)
		assert.ErrorIs(t, wrapped, cause)
	})
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 401, StatusCode(AuthRequired(CodeAuthRequired.String(), "x").Build()))
	assert.Equal(t, 409, StatusCode(Pending(CodeTogglePending.String(), "x").Build()))
	assert.Equal(t, 503, StatusCode(Transport(CodeCircuitOpen.String(), "x").Build()))
	assert.Equal(t, 500, StatusCode(errors.New("plain")))
}

func TestFromStoreError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, FromStoreError(nil, "insert", "user_likes"))
	})

	t.Run("unique violation becomes conflict", func(t *testing.T) {
		err := FromStoreError(fmt.Errorf("(23505) duplicate key value violates unique constraint"), "insert", "user_likes")
		assert.True(t, IsConflict(err))
		assert.True(t, HasCode(err, CodeLikeAlreadyExists))
	})

	t.Run("cancellation keeps its code", func(t *testing.T) {
		err := FromStoreError(fmt.Errorf("read: %w", context.Canceled), "read", "prompts")
		assert.True(t, IsTransport(err))
		assert.True(t, HasCode(err, CodeCanceled))
	})

	t.Run("anything else is transport", func(t *testing.T) {
		err := FromStoreError(errors.New("connection refused"), "read", "prompts")
		require.True(t, IsTransport(err))
		assert.True(t, HasCode(err, CodeTransportFailed))
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		orig := AuthRequired(CodeAuthRequired.String(), "sign in").Build()
		assert.Same(t, orig, FromStoreError(orig, "insert", "user_likes"))
	})
}
