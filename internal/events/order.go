// Package events defines the messages the storefront publishes.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sareesanskriti/storefront/pkg/messaging"
)

type OrderLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderPlacedEvent announces an order the order API accepted.
type OrderPlacedEvent struct {
	EventID      uuid.UUID   `json:"event_id"`
	SessionID    string      `json:"session_id,omitempty"`
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone"`
	Address      string      `json:"address"`
	Items        []OrderLine `json:"items"`
	Total        float64     `json:"total"`
	Summary      string      `json:"summary"`
	WhatsAppURL  string      `json:"whatsapp_url,omitempty"`
	PlacedAt     time.Time   `json:"placed_at"`
}

func (o OrderPlacedEvent) Subject() string {
	return messaging.OrdersPlacedSubject
}

func (o OrderPlacedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

var _ messaging.Event = OrderPlacedEvent{}
