package rest

import (
	"net/http"

	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/internal/session"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// Checkout orders the whole cart with the customer details in the body.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var form checkout.Form
	if err := web.DecodeJSON(r, &form); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := session.FlowFrom(r.Context()).Submit(r.Context(), form)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed", "lines", len(result.Items), "total", result.Total)
	web.RespondJSON(w, mLogger, http.StatusCreated, result)
}

func (h *Handler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, session.FlowFrom(r.Context()).Status())
}

// ResetCheckout returns a finished checkout to idle. A running submission is left alone.
func (h *Handler) ResetCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	flow := session.FlowFrom(r.Context())
	flow.Reset()
	web.RespondJSON(w, mLogger, http.StatusOK, flow.Status())
}
