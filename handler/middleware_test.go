package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
)

func TestRecoverPanic(t *testing.T) {
	var logs bytes.Buffer
	h := New(config.Config{}, jsonlog.New(&logs, jsonlog.LevelInfo), nil, nil)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("catalogue on fire")
	})

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.recoverPanic(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/books", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, "{\n  \"error\": \"the server encountered a problem and could not process your request\"\n}\n", rec.Body.String())
	assert.Contains(t, logs.String(), "catalogue on fire")
}

func TestEncodeJSONIndentsWithSpaces(t *testing.T) {
	h := New(config.Config{}, jsonlog.New(&bytes.Buffer{}, jsonlog.LevelInfo), nil, nil)
	rec := httptest.NewRecorder()

	err := h.encodeJSON(rec, http.StatusOK, envelope{"status": "available"}, http.Header{"X-Test": {"1"}})

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"status\": \"available\"\n}\n", rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
}
