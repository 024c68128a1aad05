package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sareesanskriti/storefront/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Subject() string {
	return "orders.placed"
}

func (m *mockAckableMsg) Ack() error {
	return m.Called().Error(0)
}

func (m *mockAckableMsg) Nak() error {
	return m.Called().Error(0)
}

func (m *mockAckableMsg) Term() error {
	return m.Called().Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, event events.OrderPlacedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func validPayload(t *testing.T) ([]byte, events.OrderPlacedEvent) {
	t.Helper()
	event := events.OrderPlacedEvent{
		EventID:      uuid.New(),
		CustomerName: "Asha Rao",
		Phone:        "9876543210",
		Address:      "12 MG Road, Bengaluru",
		Items:        []events.OrderLine{{ProductID: "p1", Name: "Banarasi", Price: 4500, Quantity: 2}},
		Total:        9000,
		Summary:      "New Saree Order",
		PlacedAt:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	payload, err := event.Payload()
	require.NoError(t, err)
	return payload, event
}

func TestHandleMessage(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	payload, event := validPayload(t)

	testCases := []struct {
		name      string
		data      []byte
		notifyErr error
		expect    string
	}{
		{name: "valid event is acked", data: payload, expect: "Ack"},
		{name: "invalid payload is terminated", data: []byte("invalid payload"), expect: "Term"},
		{name: "notifier failure is naked", data: payload, notifyErr: errors.New("desk offline"), expect: "Nak"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			msg := new(mockAckableMsg)
			msg.On("Data").Return(tc.data)
			notifier := new(mockNotifier)
			if bytes.Equal(tc.data, payload) {
				notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e events.OrderPlacedEvent) bool {
					return e.EventID == event.EventID && e.Total == event.Total
				})).Return(tc.notifyErr)
			}
			msg.On(tc.expect).Return(nil)

			// when
			handleMessage(t.Context(), msg, notifier, logger)

			// then
			msg.AssertExpectations(t)
			notifier.AssertExpectations(t)
			for _, other := range []string{"Ack", "Nak", "Term"} {
				if other != tc.expect {
					msg.AssertNotCalled(t, other)
				}
			}
		})
	}
}

func TestHandleMessage_NilMessage(t *testing.T) {
	notifier := new(mockNotifier)
	assert.NotPanics(t, func() {
		handleMessage(t.Context(), nil, notifier, slog.New(slog.DiscardHandler))
	})
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestLogNotifier(t *testing.T) {
	// given
	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	_, event := validPayload(t)
	event.WhatsAppURL = "https://wa.me/919599819939?text=hi"

	// when
	err := notifier.Notify(t.Context(), event)

	// then
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"customer":"Asha Rao"`)
	assert.Contains(t, buf.String(), `"whatsapp_url":"https://wa.me/919599819939?text=hi"`)
	assert.Contains(t, buf.String(), `"component":"notify"`)
}
