package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"ticket-pricing-api/internal/models"
)

var (
	uuidRegex       = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	couponCodeRegex = regexp.MustCompile(`^[A-Z0-9]{2,32}$`)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateEvent checks an event record at authoring time.
func ValidateEvent(event models.Event) error {
	if err := ValidateUUID(event.ID, "id"); err != nil {
		return err
	}

	if strings.TrimSpace(event.Title) == "" {
		return &ValidationError{
			Field:   "title",
			Message: "is required",
		}
	}

	if event.BaseTicketPrice < 0 {
		return &ValidationError{
			Field:   "base_ticket_price",
			Message: "must be non-negative",
		}
	}

	if event.StartsAt.IsZero() {
		return &ValidationError{
			Field:   "starts_at",
			Message: "is required",
		}
	}

	return nil
}

// ValidateOffer checks the authoring-time invariants of an offer. The
// pricing engine re-checks these defensively and just skips a malformed
// offer, but the write path rejects it outright.
func ValidateOffer(offer models.Offer) error {
	if err := ValidateUUID(offer.ID, "id"); err != nil {
		return err
	}

	if err := ValidateUUID(offer.EventID, "event_id"); err != nil {
		return err
	}

	if !ValidOfferKind(offer.Kind) {
		return &ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("unrecognized offer kind '%s'", offer.Kind),
		}
	}

	if offer.MinQuantity < 1 {
		return &ValidationError{
			Field:   "min_quantity",
			Message: "must be at least 1",
		}
	}

	if offer.MaxQuantity != nil && *offer.MaxQuantity < offer.MinQuantity {
		return &ValidationError{
			Field:   "max_quantity",
			Message: "must be greater than or equal to min_quantity",
		}
	}

	if offer.GroupSize < 1 {
		return &ValidationError{
			Field:   "group_size",
			Message: "must be at least 1",
		}
	}

	if offer.ValidFrom != nil && offer.ValidUntil != nil && !offer.ValidFrom.Before(*offer.ValidUntil) {
		return &ValidationError{
			Field:   "valid_from",
			Message: "must be before valid_until",
		}
	}

	return nil
}

// ValidOfferKind reports whether a kind belongs to the closed set the
// pricing engine understands.
func ValidOfferKind(kind models.OfferKind) bool {
	switch kind {
	case models.KindFlatRate, models.KindAddPerson, models.KindGroupDiscount,
		models.KindNoStag, models.KindStudentDiscount, models.KindRazorpayAbove,
		models.KindWomenFlashSale:
		return true
	}
	return false
}

// ValidateCouponRule checks a stored coupon rule.
func ValidateCouponRule(rule models.CouponRule) error {
	if err := ValidateCouponCode(rule.Code); err != nil {
		return err
	}

	if rule.DiscountPercent < 1 || rule.DiscountPercent > 100 {
		return &ValidationError{
			Field:   "discount_percent",
			Message: "must be between 1 and 100",
		}
	}

	if rule.ValidFrom != nil && rule.ValidUntil != nil && !rule.ValidFrom.Before(*rule.ValidUntil) {
		return &ValidationError{
			Field:   "valid_from",
			Message: "must be before valid_until",
		}
	}

	return nil
}

// ValidateCouponCode checks the shape of a coupon code.
func ValidateCouponCode(code string) error {
	if code == "" {
		return &ValidationError{
			Field:   "code",
			Message: "is required",
		}
	}

	if !couponCodeRegex.MatchString(code) {
		return &ValidationError{
			Field:   "code",
			Message: "must be 2-32 uppercase letters or digits",
		}
	}

	return nil
}

// ValidateQuoteRequest gates the pricing engine: the engine's precondition
// is a shape-valid request, and this is the only rejecting path in the
// booking flow. maxQuantity is the platform-wide per-booking ticket cap.
func ValidateQuoteRequest(req models.QuoteRequest, maxQuantity int) error {
	if req.BaseUnitPrice < 0 {
		return &ValidationError{
			Field:   "base_unit_price",
			Message: "must be non-negative",
		}
	}

	if req.Quantity < 1 {
		return &ValidationError{
			Field:   "quantity",
			Message: "must be at least 1",
		}
	}

	if maxQuantity > 0 && req.Quantity > maxQuantity {
		return &ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("cannot exceed %d tickets per booking", maxQuantity),
		}
	}

	if req.Coupon != nil && (req.Coupon.DiscountPercent < 0 || req.Coupon.DiscountPercent > 100) {
		return &ValidationError{
			Field:   "coupon.discount_percent",
			Message: "must be between 0 and 100",
		}
	}

	if req.Now.IsZero() {
		return &ValidationError{
			Field:   "now",
			Message: "is required",
		}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}

func ValidateTimeString(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "is required",
		}
	}

	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "must be a valid RFC3339 timestamp",
		}
	}

	return t, nil
}
