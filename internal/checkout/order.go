package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sareesanskriti/storefront/internal/cart"
	serr "github.com/sareesanskriti/storefront/internal/errors"
	"github.com/sareesanskriti/storefront/pkg/httpclient"
)

// OrderItem is one line of the order payload.
type OrderItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// OrderRequest is the body of POST /checkout. City repeats the address for
// backends that read the delivery location from it.
type OrderRequest struct {
	CustomerName string      `json:"customerName"`
	Phone        string      `json:"phone"`
	Address      string      `json:"address"`
	City         string      `json:"city"`
	Email        string      `json:"email"`
	Items        []OrderItem `json:"items"`
}

// NewOrderRequest builds the payload for the whole cart in one request.
func NewOrderRequest(form Form, items cart.Cart) OrderRequest {
	lines := make([]OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderItem{ID: it.ProductID, Name: it.Name, Price: it.Price, Qty: it.Quantity})
	}
	return OrderRequest{
		CustomerName: form.CustomerName,
		Phone:        form.Phone,
		Address:      form.Address,
		City:         form.Address,
		Email:        form.Email,
		Items:        lines,
	}
}

// Submitter sends an order to the order API and returns its acknowledgment.
type Submitter interface {
	Submit(ctx context.Context, order OrderRequest) (json.RawMessage, error)
}

// OrderClient posts orders to the order API.
type OrderClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewOrderClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *OrderClient {
	return &OrderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "order_client"),
	}
}

// Submit posts the order once; it is never retried.
// Errors wrap ErrOrderRejected for 4xx answers and ErrOrderUnavailable otherwise.
func (c *OrderClient) Submit(ctx context.Context, order OrderRequest) (json.RawMessage, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(serr.ErrOrderUnavailable, err)
	}
	defer httpclient.Drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := httpclient.NewStatusError(resp)
		c.logger.WarnContext(ctx, "order rejected", "status", statusErr.Status, "message", statusErr.Message)
		if statusErr.Status >= 400 && statusErr.Status < 500 && statusErr.Status != http.StatusTooManyRequests {
			return nil, errors.Join(serr.ErrOrderRejected, statusErr)
		}
		return nil, errors.Join(serr.ErrOrderUnavailable, statusErr)
	}

	ack, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Join(serr.ErrOrderUnavailable, err)
	}
	if len(bytes.TrimSpace(ack)) == 0 || !json.Valid(ack) {
		return nil, nil
	}
	return ack, nil
}
