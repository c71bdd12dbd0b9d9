package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production").Info("hello", slog.String("uf", "SP"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "SP", line["uf"])
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "production")

	h := middleware.RequestID(StructuredLogger(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/states", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Request completed", line["msg"])
	assert.Equal(t, "/api/v1/states", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.NotEmpty(t, line["req_id"])
}
