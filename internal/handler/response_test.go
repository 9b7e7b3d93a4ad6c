package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"validation", fmt.Errorf("bad body: %w", service.ErrValidation), http.StatusBadRequest, "bad_request", "bad body: validation failed"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "missing uid"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden", "forbidden"},
		{"conflict", service.ErrConflict, http.StatusConflict, "conflict", "conflict"},
		{"dependency", service.ErrDependency, http.StatusBadGateway, "dependency_failed", "dependency failed"},
		{"db not ready", repository.ErrDBNotReady, http.StatusServiceUnavailable, "unavailable", "database not ready"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, respondError(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestParseListingID(t *testing.T) {
	e := echo.New()
	for _, tt := range []struct {
		raw  string
		id   uint64
		okay bool
	}{{"42", 42, true}, {"0", 0, false}, {"-1", 0, false}, {"x", 0, false}} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(tt.raw)
		id, ok := parseListingID(c)
		assert.Equal(t, tt.okay, ok, tt.raw)
		assert.Equal(t, tt.id, id, tt.raw)
	}
}
