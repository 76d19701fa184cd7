package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusTeapot, map[string]string{"k": "v"}))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"k":"v"}`, rec.Body.String())
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "nope") }, http.StatusBadRequest, "nope"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "who") }, http.StatusUnauthorized, "who"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "no") }, http.StatusForbidden, "no"},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "gone") }, http.StatusNotFound, "gone"},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "dup") }, http.StatusConflict, "dup"},
		{"error value", func(w http.ResponseWriter) { WriteError(w, http.StatusBadGateway, errors.New("upstream")) }, http.StatusBadGateway, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestWriteInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sql")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestParseJSONOrError(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	rec := httptest.NewRecorder()
	require.True(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, "x", dest.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	rec = httptest.NewRecorder()
	assert.False(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&status=TODO&bad=xyz", nil)

	assert.Equal(t, 5, ParseQueryInt(req, "limit", 100))
	assert.Equal(t, 100, ParseQueryInt(req, "missing", 100))
	assert.Equal(t, 7, ParseQueryInt(req, "bad", 7))
	assert.Equal(t, "TODO", ParseQueryString(req, "status", ""))
	assert.Equal(t, "fallback", ParseQueryString(req, "missing", "fallback"))
}
