package rest

import (
	"net/http"

	"github.com/sareesanskriti/storefront/internal/cart"
	"github.com/sareesanskriti/storefront/pkg/web"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=100"`
	// Quantity below 1 adds a single unit.
	Quantity int `json:"quantity" validate:"lte=100"`
}

type updateItemRequest struct {
	// Quantity of 0 or less removes the line.
	Quantity *int `json:"quantity" validate:"required,lte=100"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, cart.ProviderFrom(r.Context()).Snapshot())
}

// AddItem looks the product up in the catalog and snapshots it into the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req addItemRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}
	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	snap := cart.ProviderFrom(r.Context()).AddItem(r.Context(), product.Candidate(), req.Quantity)
	mLogger.DebugContext(r.Context(), "Added to cart", "product_id", req.ProductID, "item_count", snap.ItemCount)
	web.RespondJSON(w, mLogger, http.StatusOK, snap)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	var req updateItemRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}
	snap := cart.ProviderFrom(r.Context()).UpdateQuantity(r.Context(), id, *req.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, snap)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart.ProviderFrom(r.Context()).RemoveItem(r.Context(), id))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, cart.ProviderFrom(r.Context()).ClearCart(r.Context()))
}
