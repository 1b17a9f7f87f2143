package models

import "time"

// OfferKind identifies one of the supported promotional rules. The set is
// closed: pricing dispatches exhaustively over these constants and treats
// anything else as ineligible.
type OfferKind string

const (
	// KindFlatRate re-prices every ticket at the offer's adjustment value.
	KindFlatRate OfferKind = "flat_rate"
	// KindAddPerson surcharges each ticket beyond the offer's group size.
	KindAddPerson OfferKind = "add_person"
	// KindGroupDiscount re-prices per head once the group size is met.
	KindGroupDiscount OfferKind = "group_discount"
	// KindNoStag adds a one-off surcharge to bookings below the group size.
	KindNoStag OfferKind = "no_stag"
	// KindStudentDiscount is a flat per-ticket price for verified students.
	KindStudentDiscount OfferKind = "student_discount"
	// KindRazorpayAbove passes a flat gateway fee on to the buyer.
	KindRazorpayAbove OfferKind = "razorpay_above"
	// KindWomenFlashSale is a time-boxed flat per-ticket price, usually 0.
	KindWomenFlashSale OfferKind = "women_flash_sale"
)

// Offer represents a promotional rule attached to one event.
// PriceAdjustment is in whole currency units; its meaning depends on Kind.
type Offer struct {
	ID              string     `json:"id"`       // uuid
	EventID         string     `json:"event_id"` // uuid
	Kind            OfferKind  `json:"kind"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PriceAdjustment int64      `json:"price_adjustment"`
	MinQuantity     int        `json:"min_quantity"`
	MaxQuantity     *int       `json:"max_quantity,omitempty"`
	GroupSize       int        `json:"group_size"`
	Active          bool       `json:"is_active"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"` // absent = open-ended
}

// Event represents a bookable event with a base per-ticket price.
type Event struct {
	ID              string    `json:"id"` // uuid
	Title           string    `json:"title"`
	Venue           string    `json:"venue"`
	BaseTicketPrice int64     `json:"base_ticket_price"` // whole currency units
	StartsAt        time.Time `json:"starts_at"`
}

// Coupon is an already-resolved percentage discount. Matching a raw code to
// a percentage happens outside the pricing engine; the engine only applies it.
type Coupon struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// CouponRule is the stored form of a coupon, carrying the constraints the
// resolver checks before handing a Coupon to the engine.
type CouponRule struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	Active          bool       `json:"active"`
	ValidFrom       *time.Time `json:"valid_from,omitempty"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
}

// Membership records a user's paid membership. A user with an unexpired
// membership never pays for tickets.
type Membership struct {
	UserID    string     `json:"user_id"` // uuid
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// QuoteRequest is the pricing engine's sole input. Now is injected so the
// computation is deterministic and replayable.
type QuoteRequest struct {
	BaseUnitPrice    int64     `json:"base_unit_price"`
	Quantity         int       `json:"quantity"`
	SelectedOffer    *Offer    `json:"selected_offer,omitempty"`
	MembershipActive bool      `json:"membership_active"`
	Coupon           *Coupon   `json:"coupon,omitempty"`
	Now              time.Time `json:"now"`
}

// Adjustment is one line of the price breakdown. Amount is signed:
// positive = surcharge, negative = discount.
type Adjustment struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// QuoteResult is the pricing engine's sole output.
type QuoteResult struct {
	OriginalTotal        int64        `json:"original_total"`
	Adjustments          []Adjustment `json:"adjustments"`
	MembershipApplied    bool         `json:"membership_applied"`
	CouponDiscountAmount int64        `json:"coupon_discount_amount"`
	SavingsTotal         int64        `json:"savings_total"`
	FinalTotal           int64        `json:"final_total"`
}

// QuoteBookingRequest is the checkout-facing payload. The service resolves
// event, offer, membership and coupon from storage before calling the engine.
type QuoteBookingRequest struct {
	EventID    string     `json:"event_id"`          // uuid
	UserID     string     `json:"user_id,omitempty"` // uuid, optional
	Quantity   int        `json:"quantity"`
	OfferID    string     `json:"offer_id,omitempty"` // uuid, optional
	CouponCode string     `json:"coupon_code,omitempty"`
	Now        *time.Time `json:"now,omitempty"` // RFC3339, defaults to server time
}

// EligibleOffer is one entry of the booking form's offer listing, with the
// total the booking would cost if that offer were selected.
type EligibleOffer struct {
	OfferID    string    `json:"offer_id"`
	Kind       OfferKind `json:"kind"`
	Title      string    `json:"title"`
	FinalTotal int64     `json:"final_total"`
}

// EligibleOffersResponse is the response payload when asking which offers
// apply for a quantity at a point in time.
type EligibleOffersResponse struct {
	EventID        string          `json:"event_id"`
	Quantity       int             `json:"quantity"`
	EligibleOffers []EligibleOffer `json:"eligible_offers"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
