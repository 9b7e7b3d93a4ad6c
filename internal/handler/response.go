package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/repository"
	"github.com/shinyyama/loops-backend/internal/reqctx"
	"github.com/shinyyama/loops-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondError maps a service error onto its HTTP status. Errors of no known
// kind are logged and reported as internal without their details.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", err.Error()))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", err.Error()))
	case errors.Is(err, service.ErrDependency):
		return c.JSON(http.StatusBadGateway, NewErrorResponse("dependency_failed", err.Error()))
	case errors.Is(err, repository.ErrDBNotReady):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "database not ready"))
	}
	log.Printf("%s %s %s: %v", reqctx.LogPrefix(c.Request().Context()), c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func parseListingID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// withListing tags the request context with the listing id for log lines.
func withListing(c echo.Context, listingID uint64) {
	ctx := reqctx.WithListingID(c.Request().Context(), listingID)
	c.SetRequest(c.Request().WithContext(ctx))
}
