package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
)

// Client talks to the product API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "catalog"),
	}
}

// List returns the products matching f.
// Returns an error wrapping ErrCatalogUnavailable when the API can't be reached.
func (c *Client) List(ctx context.Context, f Filter) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "/products", &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return f.Apply(products), nil
}

// Facets returns the filter choices for the whole catalog.
func (c *Client) Facets(ctx context.Context) (Facets, error) {
	products, err := c.List(ctx, Filter{})
	if err != nil {
		return Facets{}, err
	}
	return FacetsOf(products), nil
}

// Get returns one product.
// Returns ErrProductNotFound if the API answers 404.
func (c *Client) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := c.get(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog request failed", "path", path, "error", err)
		return errors.Join(serr.ErrCatalogUnavailable, err)
	}
	defer httpclient.Drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return serr.ErrProductNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		statusErr := httpclient.NewStatusError(resp)
		c.logger.WarnContext(ctx, "catalog request rejected", "path", path, "status", statusErr.Status, "message", statusErr.Message)
		return errors.Join(serr.ErrCatalogUnavailable, statusErr)
	}
	return httpclient.DecodeJSON(resp, dst)
}
