package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/service"
)

type TransitionHandler struct {
	svc service.StatusService
}

func NewTransitionHandler(svc service.StatusService) *TransitionHandler {
	return &TransitionHandler{svc: svc}
}

type TransitionRequest struct {
	Kind          string  `json:"kind"`
	BuyerUID      string  `json:"buyerUid"`
	Amount        *int64  `json:"amount"`
	HandoffMethod string  `json:"handoffMethod"`
	ProofURL      *string `json:"proofUrl"`
	Rating        int     `json:"rating"`
	Review        *string `json:"review"`
}

type TransitionResponse struct {
	Applied     bool                 `json:"applied"`
	Listing     ListingResponse      `json:"listing"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

func (h *TransitionHandler) Fire(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	var req TransitionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	withListing(c, id)
	res, err := h.svc.Fire(c.Request().Context(), service.TransitionRequest{
		ListingID:     id,
		ActorUID:      uid,
		Kind:          service.TransitionKind(req.Kind),
		BuyerUID:      req.BuyerUID,
		Amount:        req.Amount,
		HandoffMethod: model.HandoffMethod(req.HandoffMethod),
		ProofURL:      req.ProofURL,
		Rating:        req.Rating,
		Review:        req.Review,
	})
	if err != nil {
		return respondError(c, err)
	}
	resp := TransitionResponse{Applied: res.Applied, Listing: toListingResponse(res.Listing)}
	if res.Transaction != nil {
		t := toTransactionResponse(res.Transaction)
		resp.Transaction = &t
	}
	return c.JSON(http.StatusOK, resp)
}
