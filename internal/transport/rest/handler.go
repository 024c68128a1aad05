// Package rest exposes the storefront to the browser as a JSON API.
package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sareesanskriti/storefront/internal/admin"
	"github.com/sareesanskriti/storefront/internal/catalog"
	"github.com/sareesanskriti/storefront/internal/checkout"
	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// Catalog is the read side of the product API.
type Catalog interface {
	List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error)
	Facets(ctx context.Context) (catalog.Facets, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

// Admin is the back-office surface. Calls are scoped to the admin session in ctx.
type Admin interface {
	Login(ctx context.Context, email, password string) (admin.Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (admin.Session, bool)
	CreateProduct(ctx context.Context, in admin.ProductInput, img *admin.Image) (*catalog.Product, error)
	UpdateProduct(ctx context.Context, id string, patch admin.ProductPatch, img *admin.Image) (*catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	Orders(ctx context.Context) []admin.Order
}

type Handler struct {
	catalog  Catalog
	admin    Admin
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(catalog Catalog, admin Admin, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		admin:    admin,
		validate: web.NewValidator(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes mounts the API under /api/v1. sessions resolves the browsing
// session every cart, checkout and admin call is scoped to.
func (h *Handler) RegisterRoutes(r chi.Router, sessions func(http.Handler) http.Handler) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessions)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/facets", h.Facets)
			r.Get("/{id}", h.GetProduct)
			r.Post("/{id}/order", h.BuyNow)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productId}", h.UpdateItem)
			r.Delete("/items/{productId}", h.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.CheckoutStatus)
			r.Post("/", h.Checkout)
			r.Delete("/", h.ResetCheckout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.Post("/logout", h.AdminLogout)
			r.Get("/session", h.AdminSession)
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin(h.admin, h.logger))
				r.Get("/orders", h.AdminOrders)
				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)
				r.Delete("/products/{id}", h.DeleteProduct)
			})
		})
	})
}

// respondServiceError maps domain and upstream failures to HTTP answers.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ctx := r.Context()
	var formErr *checkout.ValidationError
	var statusErr *httpclient.StatusError
	switch {
	case errors.As(err, &formErr):
		logger.DebugContext(ctx, "Checkout form rejected", "fields", formErr.Fields)
		web.RespondValidationErrors(w, logger, formErr.Fields)
	case errors.Is(err, serr.ErrProductNotFound):
		logger.WarnContext(ctx, "Product not found", "error", err)
		web.RespondError(w, logger, http.StatusNotFound, "Product not found")
	case errors.Is(err, serr.ErrInvalidLogin):
		web.RespondError(w, logger, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, serr.ErrUnauthorized):
		web.RespondError(w, logger, http.StatusUnauthorized, "Admin login required")
	case errors.Is(err, checkout.ErrSubmissionInProgress):
		web.RespondError(w, logger, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		web.RespondError(w, logger, http.StatusBadRequest, "Your cart is empty")
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "Upstream call timed out", "error", err)
		web.RespondError(w, logger, http.StatusGatewayTimeout, "The store is taking too long to answer, please try again")
	case errors.Is(err, context.Canceled):
		logger.InfoContext(ctx, "Request canceled by client")
		web.RespondError(w, logger, http.StatusServiceUnavailable, "Request canceled")
	case errors.Is(err, serr.ErrOrderRejected):
		logger.WarnContext(ctx, "Order rejected by the order API", "error", err)
		web.RespondError(w, logger, http.StatusBadGateway, "We could not place your order, please try again")
	case errors.Is(err, serr.ErrCatalogUnavailable),
		errors.Is(err, serr.ErrOrderUnavailable),
		errors.Is(err, serr.ErrAdminUnavailable):
		logger.ErrorContext(ctx, "Upstream unavailable", "error", err)
		web.RespondError(w, logger, http.StatusServiceUnavailable, "The store is unavailable right now, please try again")
	case errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError:
		logger.WarnContext(ctx, "Upstream refused the request", "status", statusErr.Status, "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, statusErr.Message)
	default:
		logger.ErrorContext(ctx, "Unexpected error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal Server Error")
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct rules on it.
// It writes the 400 itself and reports false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := web.DecodeJSON(r, dst); err != nil {
		logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		if fields, ok := web.ValidationErrors(err); ok {
			logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
			web.RespondValidationErrors(w, logger, fields)
			return false
		}
		logger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
