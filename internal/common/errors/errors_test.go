package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	msgs   []string
	fields []map[string]interface{}
}

func (c *captureLogger) Error(msg string, fields map[string]interface{}) {
	c.msgs = append(c.msgs, msg)
	c.fields = append(c.fields, fields)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeAdminForbidden, http.StatusForbidden},
		{ErrCodeValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRewriteServiceFailed, http.StatusBadGateway},
		{ErrCodeRewriteTimeout, http.StatusGatewayTimeout},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestErrorCategory(t *testing.T) {
	assert.Equal(t, "ACCESS", GetErrorCategory(ErrCodeUnauthorized))
	assert.Equal(t, "ACCESS", GetErrorCategory(ErrCodeAdminForbidden))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeStoreUnavailable))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeRewriteTimeout))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeBadRequest))
	assert.Equal(t, "ABUSE", GetErrorCategory(ErrCodeRateLimited))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestRewriteErrorsKeepCause(t *testing.T) {
	cause := stderrors.New("upstream 500")
	err := NewRewriteServiceFailedError(cause)

	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upstream 500", err.Details)
}

func TestNormalize(t *testing.T) {
	std := NewBadRequestError("nope")
	assert.Same(t, std, Normalize(std))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestResponder_WriteError(t *testing.T) {
	log := &captureLogger{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/grants", nil)

	NewResponder(log).WriteError(rec, req, NewAdminForbiddenError().WithMetadata("route", "admin"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Error StandardError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrCodeAdminForbidden, body.Error.Code)
	assert.Equal(t, "admin", body.Error.Metadata["route"])

	require.Len(t, log.fields, 1)
	assert.Equal(t, "ADMIN_FORBIDDEN", log.fields[0]["errorCode"])
	assert.Equal(t, "ACCESS", log.fields[0]["errorCategory"])
}
