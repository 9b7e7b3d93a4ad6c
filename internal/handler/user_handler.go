package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/service"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

type PublicUserResponse struct {
	UID           string  `json:"uid"`
	DisplayName   string  `json:"displayName"`
	PhotoURL      *string `json:"photoURL"`
	Verified      bool    `json:"verified"`
	Points        int64   `json:"points"`
	ReviewCount   int     `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	u, err := h.svc.GetPublic(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, PublicUserResponse{
		UID:           u.Profile.UID,
		DisplayName:   u.Profile.DisplayName,
		PhotoURL:      u.Profile.PhotoURL,
		Verified:      u.Profile.Verified,
		Points:        u.Points,
		ReviewCount:   u.ReviewCount,
		AverageRating: u.AverageRating,
	})
}
