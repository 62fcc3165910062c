package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, 200, map[string]int{"count": 3})
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorMessage(rec, 400, "title is required")

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "title is required", decodeErrorBody(t, rec)["error"])
}

func TestWriteInternalError_Generic(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec)

	assert.Equal(t, 500, rec.Code)
	// Internal detail must never reach the client.
	assert.Equal(t, "an internal error occurred", decodeErrorBody(t, rec)["error"])
}

func TestStatusHelpers(t *testing.T) {
	cases := []struct {
		name   string
		write  func(rec *httptest.ResponseRecorder)
		status int
	}{
		{"bad request", func(r *httptest.ResponseRecorder) { WriteBadRequest(r, "x") }, 400},
		{"unauthorized", func(r *httptest.ResponseRecorder) { WriteUnauthorized(r, "x") }, 401},
		{"not found", func(r *httptest.ResponseRecorder) { WriteNotFound(r, "x") }, 404},
		{"rate limited", func(r *httptest.ResponseRecorder) { WriteTooManyRequests(r, "x") }, 429},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
