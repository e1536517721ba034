package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad limit"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("document"), ErrorTypeNotFound, http.StatusNotFound},
		{"forbidden", NewForbiddenError("document"), ErrorTypeForbidden, http.StatusNotFound},
		{"conflict", NewConflictError("cycle"), ErrorTypeConflict, http.StatusConflict},
		{"cycle", NewCycleDetectedError([]string{"a", "b"}), ErrorTypeCycleDetected, http.StatusConflict},
		{"timeout", NewTimeoutError("similarity"), ErrorTypeTimeout, http.StatusServiceUnavailable},
		{"unavailable", NewUnavailableError("store"), ErrorTypeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.StackTrace)
		})
	}
}

func TestForbiddenLooksLikeNotFound(t *testing.T) {
	nf := NewNotFoundError("document")
	fb := NewForbiddenError("document")

	assert.Equal(t, nf.Message, fb.Message)
	assert.Equal(t, nf.HTTPStatus, fb.HTTPStatus)
	assert.True(t, IsForbidden(fb))
	assert.False(t, IsNotFound(fb))
}

func TestWrapKeepsType(t *testing.T) {
	base := NewConflictError("would create a cycle")
	wrapped := Wrap(base, "move category")

	assert.True(t, IsConflict(wrapped))
	assert.Equal(t, "move category: would create a cycle", GetAppError(wrapped).Message)
	assert.Equal(t, "would create a cycle", base.Message)

	plain := Wrap(fmt.Errorf("boom"), "load")
	assert.True(t, IsInternal(plain))
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestFromContext(t *testing.T) {
	assert.True(t, IsTimeout(FromContext(context.DeadlineExceeded, "op")))
	assert.True(t, IsCanceled(FromContext(context.Canceled, "op")))
	assert.True(t, IsTimeout(FromContext(fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "op")))

	other := errors.New("other")
	assert.Equal(t, other, FromContext(other, "op"))
	assert.Nil(t, FromContext(nil, "op"))
}

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", NewValidationError("limit must be >= 0"), http.StatusBadRequest, "VALIDATION"},
		{"forbidden rendered as not found", NewForbiddenError("document"), http.StatusNotFound, "NOT_FOUND"},
		{"cycle", NewCycleDetectedError([]string{"x"}), http.StatusConflict, "CYCLE_DETECTED"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/graph", nil)
			req.Header.Set("X-Request-ID", "req-1")

			h.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestErrorHandlerForbiddenAndNotFoundIdentical(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	render := func(err error) string {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/x", nil), err)
		return fmt.Sprintf("%d %s", rec.Code, rec.Body.String())
	}

	assert.Equal(t, render(NewNotFoundError("document")), render(NewForbiddenError("document")))
}

func TestErrorHandlerFallbacks(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"route not found"`)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/graph", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "PATCH")
}

func TestErrorHandlerCanceledWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(nil, false).Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), NewCanceledError("graph"))
	assert.Empty(t, rec.Body.String())
}

func TestErrorHandlerDebugStackTraces(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)

	render := func(err error) ErrorResponse {
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/x", nil), err)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	assert.Contains(t, render(NewConflictError("busy")).Details, "stack_trace")
	assert.Equal(t, render(NewNotFoundError("document")), render(NewForbiddenError("document")))
	assert.NotContains(t, render(NewNotFoundError("document")).Details, "stack_trace")
}
