package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	t.Run("writes JSON with correct content type", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusOK, map[string]string{"foo": "bar"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "bar", decode(t, rec)["foo"])
	})

	t.Run("handles nil data", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()

		WriteJSON(rec, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	fields := Fields{"total": 3}

	WriteOK(rec, fields)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["total"])
	_, mutated := fields["status"]
	assert.False(t, mutated, "caller's fields must not be modified")
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		code   int
		errMsg string
	}{
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "Sensor not found") }, http.StatusNotFound, "Sensor not found"},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "bad filter") }, http.StatusBadRequest, "bad filter"},
		{"too many", func(w http.ResponseWriter) { WriteTooManyRequests(w, "Rate limit exceeded") }, http.StatusTooManyRequests, "Rate limit exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.code, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.errMsg, body["error"])
		})
	}
}

func TestWriteErrorAt(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	WriteErrorAt(rec, http.StatusInternalServerError, "Sensor temporarily unavailable", at)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Sensor temporarily unavailable", body["error"])
	assert.Equal(t, "2025-03-01T12:00:00Z", body["timestamp"])
}
