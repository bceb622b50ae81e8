package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/clerkly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EFETCH, http.StatusBadGateway},
		{domain.EWRITE, http.StatusBadGateway},
		{domain.EINVALIDRES, http.StatusUnprocessableEntity},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.ENOTIMPL, http.StatusNotImplemented},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("domain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/reports/abc", nil)

		ErrorResponse(rec, req, logger, domain.Conflict("report.save", "a save for this report is already in flight"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, domain.ECONFLICT, body.Error.Code)
		assert.Equal(t, "a save for this report is already in flight", body.Error.Message)
	})

	t.Run("plain error hides details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/reports/abc", nil)

		ErrorResponse(rec, req, logger, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, domain.EINTERNAL, body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
	})
}
