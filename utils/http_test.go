package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteOK(rec, map[string]string{"hello": "world"})
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{"hello": "world"}, resp.Data)
}

func TestWriteBadRequest_WithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteBadRequest(rec, "Validation failed", map[string]interface{}{"Kind": "Kind is required"})
	require.NoError(t, err)

	assert.Equal(t, 400, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error)
	assert.Equal(t, "Kind is required", resp.Details["Kind"])
}

func TestWriteServiceUnavailable_SetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteServiceUnavailable(rec, "append was not durably persisted")
	require.NoError(t, err)

	assert.Equal(t, 503, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "retryable", resp.Error)
}

func TestWriteNotFound_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteNotFound(rec, ""))

	assert.Equal(t, 404, rec.Code)
	assert.Contains(t, rec.Body.String(), "Resource not found")
}
