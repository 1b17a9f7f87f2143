package events

import (
	"context"
	"sync"
	"time"

	"ticket-pricing-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventOfferCreated is emitted when an offer is created or updated
	EventOfferCreated EventType = "offer.created"
	// EventCouponCreated is emitted when a coupon rule is created or updated
	EventCouponCreated EventType = "coupon.created"
	// EventQuoteComputed is emitted when a booking quote is computed
	EventQuoteComputed EventType = "quote.computed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// OfferCreatedData contains data for offer created events.
type OfferCreatedData struct {
	Offer models.Offer
}

// CouponCreatedData contains data for coupon created events.
type CouponCreatedData struct {
	Rule models.CouponRule
}

// QuoteComputedData contains data for quote computed events. It carries
// everything the booking workflow needs to audit what produced the amount.
type QuoteComputedData struct {
	EventID    string
	UserID     string
	Quantity   int
	OfferID    string
	CouponCode string
	Result     models.QuoteResult
	QuotedAt   time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Execute handlers asynchronously to avoid blocking the quote path
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				_ = err
			}
		}(handler)
	}
}

// PublishOfferCreated publishes an offer created event.
func (m *Manager) PublishOfferCreated(ctx context.Context, offer models.Offer) {
	m.Publish(ctx, EventOfferCreated, OfferCreatedData{Offer: offer})
}

// PublishCouponCreated publishes a coupon created event.
func (m *Manager) PublishCouponCreated(ctx context.Context, rule models.CouponRule) {
	m.Publish(ctx, EventCouponCreated, CouponCreatedData{Rule: rule})
}

// PublishQuoteComputed publishes a quote computed event.
func (m *Manager) PublishQuoteComputed(ctx context.Context, data QuoteComputedData) {
	m.Publish(ctx, EventQuoteComputed, data)
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
