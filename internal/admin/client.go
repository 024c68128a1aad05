package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sareesanskriti/storefront/internal/catalog"
	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
)

// ProductInput is a new product.
type ProductInput struct {
	Name        string   `json:"name"        validate:"required,max=200"`
	Price       float64  `json:"price"       validate:"gte=0"`
	Description string   `json:"description" validate:"max=5000"`
	Fabric      string   `json:"fabric"      validate:"max=100"`
	Category    string   `json:"category"    validate:"max=100"`
	ImageURLs   []string `json:"imageUrls"   validate:"omitempty,dive,url"`
}

// ProductPatch changes the fields that are set.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty"        validate:"omitempty,min=1,max=200"`
	Price       *float64 `json:"price,omitempty"       validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=5000"`
	Fabric      *string  `json:"fabric,omitempty"      validate:"omitempty,max=100"`
	Category    *string  `json:"category,omitempty"    validate:"omitempty,max=100"`
	ImageURLs   []string `json:"imageUrls,omitempty"   validate:"omitempty,dive,url"`
}

// Image is an uploaded product picture forwarded as the multipart "image" part.
type Image struct {
	Filename string
	Data     io.Reader
}

// Order is an order as listed by the admin API.
type Order struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone"`
	Address      string          `json:"address,omitempty"`
	ProductID    string          `json:"productId,omitempty"`
	ProductName  string          `json:"productName,omitempty"`
	ProductPrice float64         `json:"productPrice,omitempty"`
	Items        json.RawMessage `json:"items,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
}

// Client calls the admin endpoints of the product API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "admin_client"),
	}
}

// Login exchanges credentials for a bearer token.
// Returns ErrInvalidLogin when the API refuses or answers without a token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := c.do(ctx, http.MethodPost, "/admin/login", "", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer httpclient.Drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %w", serr.ErrInvalidLogin, httpclient.NewStatusError(resp))
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := httpclient.DecodeJSON(resp, &out); err != nil || out.Token == "" {
		return "", serr.ErrInvalidLogin
	}
	return out.Token, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, in ProductInput, img *Image) (*catalog.Product, error) {
	fields := map[string]string{
		"name":        in.Name,
		"price":       formatPrice(in.Price),
		"description": in.Description,
		"fabric":      in.Fabric,
		"category":    in.Category,
		"imageUrl":    first(in.ImageURLs),
	}
	var p catalog.Product
	if err := c.send(ctx, http.MethodPost, "/admin/products", token, in, fields, img, &p); err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}
	return &p, nil
}

// UpdateProduct returns ErrProductNotFound when the API answers 404.
func (c *Client) UpdateProduct(ctx context.Context, token, id string, patch ProductPatch, img *Image) (*catalog.Product, error) {
	fields := map[string]string{}
	if patch.Name != nil && *patch.Name != "" {
		fields["name"] = *patch.Name
	}
	if patch.Price != nil {
		fields["price"] = formatPrice(*patch.Price)
	}
	if patch.Description != nil && *patch.Description != "" {
		fields["description"] = *patch.Description
	}
	if patch.Fabric != nil && *patch.Fabric != "" {
		fields["fabric"] = *patch.Fabric
	}
	if patch.Category != nil && *patch.Category != "" {
		fields["category"] = *patch.Category
	}
	if len(patch.ImageURLs) > 0 {
		fields["imageUrl"] = patch.ImageURLs[0]
	}
	var p catalog.Product
	if err := c.send(ctx, http.MethodPut, "/admin/products/"+url.PathEscape(id), token, patch, fields, img, &p); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return &p, nil
}

// DeleteProduct returns ErrProductNotFound when the API answers 404.
func (c *Client) DeleteProduct(ctx context.Context, token, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/admin/products/"+url.PathEscape(id), token, "", nil)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	defer httpclient.Drain(resp)
	if err := c.check(resp); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

// Orders lists orders. It is best effort: any failure is logged and yields an empty list.
func (c *Client) Orders(ctx context.Context, token string) []Order {
	orders := make([]Order, 0)
	resp, err := c.do(ctx, http.MethodGet, "/admin/orders", token, "", nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to list orders", "error", err)
		return orders
	}
	defer httpclient.Drain(resp)
	if err := c.check(resp); err != nil {
		c.logger.WarnContext(ctx, "failed to list orders", "error", err)
		return orders
	}
	var got []Order
	if err := httpclient.DecodeJSON(resp, &got); err != nil {
		c.logger.WarnContext(ctx, "failed to decode orders", "error", err)
		return orders
	}
	return append(orders, got...)
}

// send writes JSON, or multipart with the image part when img is set.
func (c *Client) send(ctx context.Context, method, path, token string, jsonBody any, fields map[string]string, img *Image, dst any) error {
	var (
		body        io.Reader
		contentType string
	)
	if img != nil {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		part, err := mw.CreateFormFile("image", img.Filename)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, img.Data); err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		for _, name := range []string{"name", "price", "description", "fabric", "category", "imageUrl"} {
			if v, ok := fields[name]; ok {
				if err := mw.WriteField(name, v); err != nil {
					return err
				}
			}
		}
		if err := mw.Close(); err != nil {
			return err
		}
		body, contentType = buf, mw.FormDataContentType()
	} else {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return err
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	resp, err := c.do(ctx, method, path, token, contentType, body)
	if err != nil {
		return err
	}
	defer httpclient.Drain(resp)
	if err := c.check(resp); err != nil {
		return err
	}
	return httpclient.DecodeJSON(resp, dst)
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(serr.ErrAdminUnavailable, err)
	}
	return resp, nil
}

func (c *Client) check(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return serr.ErrProductNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Join(serr.ErrUnauthorized, httpclient.NewStatusError(resp))
	case resp.StatusCode >= 500:
		return errors.Join(serr.ErrAdminUnavailable, httpclient.NewStatusError(resp))
	default:
		return httpclient.NewStatusError(resp)
	}
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
