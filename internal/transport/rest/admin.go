package rest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sareesanskriti/storefront/internal/admin"
	"github.com/sareesanskriti/storefront/pkg/web"
)

// maxUploadBytes bounds a product form with its image.
const maxUploadBytes = 10 << 20

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// sessionResponse never carries the token back to the browser.
type sessionResponse struct {
	Username        string `json:"username,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req loginRequest
	if !h.decodeAndValidate(w, r, mLogger, &req) {
		return
	}
	sess, err := h.admin.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Admin logged in", "username", sess.Username)
	web.RespondJSON(w, mLogger, http.StatusOK, sessionResponse{Username: sess.Username, IsAuthenticated: true})
}

func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.admin.Logout(r.Context()); err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminSession(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess, ok := h.admin.Current(r.Context())
	resp := sessionResponse{IsAuthenticated: ok}
	if ok {
		resp.Username = sess.Username
	}
	web.RespondJSON(w, mLogger, http.StatusOK, resp)
}

func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.admin.Orders(r.Context()))
}

// CreateProduct accepts JSON or a multipart form with an optional "image" file.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var (
		in  admin.ProductInput
		img *admin.Image
	)
	if isMultipart(r) {
		form, ok := h.parseProductForm(w, r, mLogger)
		if !ok {
			return
		}
		defer form.close()
		var err error
		if in, err = form.input(); err != nil {
			web.RespondValidationErrors(w, mLogger, map[string]string{"price": err.Error()})
			return
		}
		img = form.image
		if !h.validateStruct(w, r, mLogger, &in) {
			return
		}
	} else if !h.decodeAndValidate(w, r, mLogger, &in) {
		return
	}

	product, err := h.admin.CreateProduct(r.Context(), in, img)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product created", "product_id", product.ID)
	web.RespondJSON(w, mLogger, http.StatusCreated, product)
}

// UpdateProduct changes only the fields present in the request.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	var (
		patch admin.ProductPatch
		img   *admin.Image
	)
	if isMultipart(r) {
		form, ok := h.parseProductForm(w, r, mLogger)
		if !ok {
			return
		}
		defer form.close()
		var err error
		if patch, err = form.patch(); err != nil {
			web.RespondValidationErrors(w, mLogger, map[string]string{"price": err.Error()})
			return
		}
		img = form.image
		if !h.validateStruct(w, r, mLogger, &patch) {
			return
		}
	} else if !h.decodeAndValidate(w, r, mLogger, &patch) {
		return
	}

	product, err := h.admin.UpdateProduct(r.Context(), id, patch, img)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated", "product_id", id)
	web.RespondJSON(w, mLogger, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParsePathParam(w, r, mLogger, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	if fields, ok := web.ValidationErrors(err); ok {
		logger.WarnContext(r.Context(), "Validation errors occurred", "errors", fields)
		web.RespondValidationErrors(w, logger, fields)
		return false
	}
	logger.ErrorContext(r.Context(), "Error validating request", "error", err)
	web.RespondError(w, logger, http.StatusBadRequest, "Invalid request")
	return false
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// productForm is a parsed multipart product form.
type productForm struct {
	values map[string][]string
	image  *admin.Image
	file   multipart.File
}

func (h *Handler) parseProductForm(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*productForm, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(r.Context(), "Error parsing multipart form", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid form")
		return nil, false
	}
	form := &productForm{values: r.MultipartForm.Value}
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		form.file = file
		form.image = &admin.Image{Filename: header.Filename, Data: io.Reader(file)}
	case !errors.Is(err, http.ErrMissingFile):
		logger.WarnContext(r.Context(), "Error reading image", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, "Invalid image")
		return nil, false
	}
	return form, true
}

func (f *productForm) close() {
	if f.file != nil {
		_ = f.file.Close()
	}
}

func (f *productForm) get(name string) (string, bool) {
	v, ok := f.values[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return strings.TrimSpace(v[0]), true
}

func (f *productForm) price() (*float64, error) {
	raw, ok := f.get("price")
	if !ok || raw == "" {
		return nil, nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("failed on rule: number")
	}
	return &p, nil
}

func (f *productForm) input() (admin.ProductInput, error) {
	price, err := f.price()
	if err != nil {
		return admin.ProductInput{}, err
	}
	in := admin.ProductInput{}
	in.Name, _ = f.get("name")
	in.Description, _ = f.get("description")
	in.Fabric, _ = f.get("fabric")
	in.Category, _ = f.get("category")
	if price != nil {
		in.Price = *price
	}
	if u, ok := f.get("imageUrl"); ok && u != "" {
		in.ImageURLs = []string{u}
	}
	return in, nil
}

func (f *productForm) patch() (admin.ProductPatch, error) {
	price, err := f.price()
	if err != nil {
		return admin.ProductPatch{}, err
	}
	patch := admin.ProductPatch{Price: price}
	for name, dst := range map[string]**string{
		"name":        &patch.Name,
		"description": &patch.Description,
		"fabric":      &patch.Fabric,
		"category":    &patch.Category,
	} {
		if v, ok := f.get(name); ok && v != "" {
			*dst = &v
		}
	}
	if u, ok := f.get("imageUrl"); ok && u != "" {
		patch.ImageURLs = []string{u}
	}
	return patch, nil
}
