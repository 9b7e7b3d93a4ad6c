package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/loops-backend/internal/model"
	"github.com/shinyyama/loops-backend/internal/service"
)

type ListingHandler struct {
	svc    service.ListingService
	status service.StatusService
}

func NewListingHandler(svc service.ListingService, status service.StatusService) *ListingHandler {
	return &ListingHandler{svc: svc, status: status}
}

type ListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Type        string `json:"type"`
}

type ListingResponse struct {
	ID            uint64  `json:"id"`
	SellerUID     string  `json:"sellerUid"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Price         int64   `json:"price"`
	Type          string  `json:"type"`
	Status        string  `json:"status"`
	BuyerUID      *string `json:"buyerUid,omitempty"`
	HandoffMethod *string `json:"handoffMethod,omitempty"`
	AgreedPrice   *int64  `json:"agreedPrice,omitempty"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func toListingResponse(l *model.Listing) ListingResponse {
	var handoff *string
	if l.HandoffMethod != nil {
		v := string(*l.HandoffMethod)
		handoff = &v
	}
	return ListingResponse{
		ID:            l.ID,
		SellerUID:     l.SellerUID,
		Title:         l.Title,
		Description:   l.Description,
		Price:         l.Price,
		Type:          string(l.Type),
		Status:        string(l.Status),
		BuyerUID:      l.BuyerUID,
		HandoffMethod: handoff,
		AgreedPrice:   l.AgreedPrice,
		CreatedAt:     l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     l.UpdatedAt.Format(time.RFC3339),
	}
}

type TransitionLogResponse struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	ActorUID  string  `json:"actorUid"`
	ProofURL  *string `json:"proofUrl,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

func (h *ListingHandler) Create(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	var req ListingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	typ := model.ListingType(req.Type)
	if req.Type == "" {
		typ = model.ListingTypeGood
	}
	l, err := h.svc.Create(c.Request().Context(), uid, req.Title, req.Description, req.Price, typ)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	l, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(l))
}

// History lists the applied status changes of a listing to its parties.
func (h *ListingHandler) History(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
	}
	id, ok := parseListingID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid listing id"))
	}
	rows, err := h.status.History(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]TransitionLogResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, TransitionLogResponse{
			From:      string(r.FromStatus),
			To:        string(r.ToStatus),
			ActorUID:  r.ActorUID,
			ProofURL:  r.ProofURL,
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
