package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/service"
)

type TransactionHandler struct {
	svc service.TransactionService
}

func NewTransactionHandler(svc service.TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

type TransactionResponse struct {
	ID                uint64  `json:"id"`
	Ref               string  `json:"ref"`
	ListingID         uint64  `json:"listingId"`
	BuyerUID          string  `json:"buyerUid"`
	SellerUID         string  `json:"sellerUid"`
	Amount            int64   `json:"amount"`
	Status            string  `json:"status"`
	HandoffMethod     string  `json:"handoffMethod"`
	VendorProofURL    *string `json:"vendorProofUrl,omitempty"`
	BuyerProofURL     *string `json:"buyerProofUrl,omitempty"`
	VendorConfirmedAt *string `json:"vendorConfirmedAt,omitempty"`
	CreatedAt         string  `json:"createdAt"`
}

func toTransactionResponse(t *model.Transaction) TransactionResponse {
	var confirmedAt *string
	if t.VendorConfirmedAt != nil {
		val := t.VendorConfirmedAt.Format(time.RFC3339)
		confirmedAt = &val
	}
	return TransactionResponse{
		ID:                t.ID,
		Ref:               t.Ref,
		ListingID:         t.ListingID,
		BuyerUID:          t.BuyerUID,
		SellerUID:         t.SellerUID,
		Amount:            t.Amount,
		Status:            string(t.Status),
		HandoffMethod:     string(t.HandoffMethod),
		VendorProofURL:    t.VendorProofURL,
		BuyerProofURL:     t.BuyerProofURL,
		VendorConfirmedAt: confirmedAt,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
}

func (h *TransactionHandler) GetByListing(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	t, err := h.svc.GetByListing(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTransactionResponse(t))
}

// ListMine serves the caller's purchases, or their sales with role=seller.
func (h *TransactionHandler) ListMine(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	list, err := h.svc.ListLedger(c.Request().Context(), uid, service.LedgerRole(c.QueryParam("role")))
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]TransactionResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toTransactionResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
