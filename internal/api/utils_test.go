package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	var rec *httptest.ResponseRecorder
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(w, r, http.StatusBadRequest, "query is required")
	}))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "query is required", body["error"])
	assert.NotEmpty(t, body["request_id"])
}

func TestWriteJSONResponse(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteJSONResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNoContent, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteJSONResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, map[string]interface{}{"ch": make(chan int)})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestReadJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid object", body: `{"query":"hi"}`},
		{name: "empty", body: "   ", wantErr: "must not be empty"},
		{name: "malformed", body: `{"query":`, wantErr: "badly-formed"},
		{name: "two values", body: `{"a":1}{"b":2}`, wantErr: "single JSON value"},
		{name: "too large", body: `{"q":"` + strings.Repeat("x", 1_048_600) + `"}`, wantErr: "larger than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			raw, err := ReadJSONBody(httptest.NewRecorder(), req)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(raw))
		})
	}
}
