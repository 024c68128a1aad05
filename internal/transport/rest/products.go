package rest

import (
	"net/http"

	"github.com/sareesanskriti/storefront/internal/catalog"
	"github.com/sareesanskriti/storefront/internal/checkout"
	"github.com/sareesanskriti/storefront/internal/session"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// ListProducts returns the catalog narrowed by ?q=, ?category= and ?fabric=,
// optionally paged with ?offset= and ?limit=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	offset, ok := web.OptionalGte(r, w, mLogger, "offset", 0, 0)
	if !ok {
		return
	}
	limit, ok := web.OptionalGte(r, w, mLogger, "limit", 1, 0)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := catalog.Filter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Fabric:   q.Get("fabric"),
	}

	products, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	products = page(products, offset, limit)
	mLogger.DebugContext(r.Context(), "Listed products", "count", len(products))
	web.RespondJSON(w, mLogger, http.StatusOK, products)
}

// page applies offset and limit; a zero limit means no limit.
func page(products []catalog.Product, offset, limit int) []catalog.Product {
	if offset >= len(products) {
		return []catalog.Product{}
	}
	products = products[offset:]
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	return products
}

func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	facets, err := h.catalog.Facets(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, facets)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, product)
}

// BuyNow orders one unit of a product directly, leaving the cart alone.
func (h *Handler) BuyNow(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var form checkout.Form
	if err := web.DecodeJSON(r, &form); err != nil {
		mLogger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}

	result, err := session.FlowFrom(r.Context()).BuyNow(r.Context(), product.Candidate(), form)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Buy-now order placed", "product_id", id)
	web.RespondJSON(w, mLogger, http.StatusCreated, result)
}
