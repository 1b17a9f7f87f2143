// Package pricing resolves the amount a buyer owes for a booking attempt.
//
// The whole package is a pure function of its input: no I/O, no shared
// state, no wall-clock reads. Callers inject the evaluation time through
// QuoteRequest.Now, so identical requests always produce identical results.
// All arithmetic is integer whole-currency-unit arithmetic.
package pricing

import (
	"fmt"
	"time"

	"ticket-pricing-api/internal/models"
	"ticket-pricing-api/internal/validation"
)

// MembershipLine is the breakdown description used when an active
// membership waives payment.
const MembershipLine = "Premium Member Benefit: Free"

// Eligible reports whether an offer may be applied for the given quantity
// at the given time. A malformed offer (bounds inverted, zero group size,
// unknown kind) is simply ineligible; authoring mistakes must never block
// a booking.
func Eligible(offer models.Offer, quantity int, now time.Time) bool {
	if !offer.Active {
		return false
	}
	if offer.MinQuantity < 1 || offer.GroupSize < 1 {
		return false
	}
	if offer.MaxQuantity != nil && *offer.MaxQuantity < offer.MinQuantity {
		return false
	}
	if quantity < offer.MinQuantity {
		return false
	}
	if offer.MaxQuantity != nil && quantity > *offer.MaxQuantity {
		return false
	}
	if offer.ValidFrom != nil && now.Before(*offer.ValidFrom) {
		return false
	}
	if offer.ValidUntil != nil && now.After(*offer.ValidUntil) {
		return false
	}
	return validation.ValidOfferKind(offer.Kind)
}

// applyOffer maps (base price, quantity, offer) to the offer-adjusted total
// and the breakdown line for it. ok is false for an unrecognized kind, in
// which case the caller prices the booking as if no offer were selected.
func applyOffer(baseUnitPrice int64, quantity int, offer models.Offer) (total int64, line models.Adjustment, ok bool) {
	original := baseUnitPrice * int64(quantity)

	switch offer.Kind {
	case models.KindFlatRate, models.KindStudentDiscount, models.KindWomenFlashSale:
		// The offer replaces the base price entirely.
		total = offer.PriceAdjustment * int64(quantity)
	case models.KindGroupDiscount:
		// Per-head re-price; eligibility already guarantees the group is
		// large enough (authors set min_quantity = group_size).
		total = offer.PriceAdjustment * int64(quantity)
	case models.KindAddPerson:
		extra := quantity - offer.GroupSize
		if extra < 0 {
			extra = 0
		}
		total = original + offer.PriceAdjustment*int64(extra)
	case models.KindNoStag:
		total = original
		if quantity < offer.GroupSize {
			total += offer.PriceAdjustment
		}
	case models.KindRazorpayAbove:
		// Flat gateway fee, once per booking.
		total = original + offer.PriceAdjustment
	default:
		return original, models.Adjustment{}, false
	}

	if total < 0 {
		total = 0
	}

	line = models.Adjustment{
		Description: offerLabel(offer),
		Amount:      total - original,
	}
	return total, line, true
}

// offerLabel picks the breakdown description for an offer line. Title is a
// display string, so it wins when the author set one.
func offerLabel(offer models.Offer) string {
	if offer.Title != "" {
		return offer.Title
	}
	switch offer.Kind {
	case models.KindFlatRate:
		return "Flat Rate Offer"
	case models.KindAddPerson:
		return "Additional Person"
	case models.KindGroupDiscount:
		return "Group Discount"
	case models.KindNoStag:
		return "Stag Entry Surcharge"
	case models.KindStudentDiscount:
		return "Student Discount"
	case models.KindRazorpayAbove:
		return "Payment Processing Fee"
	case models.KindWomenFlashSale:
		return "Women's Flash Sale"
	}
	return string(offer.Kind)
}

// Quote computes the payable amount and its breakdown for one booking
// attempt. The request must already be shape-valid (quantity >= 1, base
// price >= 0); see validation.ValidateQuoteRequest.
//
// Stages run in a fixed order: eligibility, offer pricing, membership
// override, coupon discount, floor at zero. An ineligible or unrecognized
// offer silently falls back to the un-discounted total; promotions are
// best-effort and never block checkout.
func Quote(req models.QuoteRequest) models.QuoteResult {
	original := req.BaseUnitPrice * int64(req.Quantity)
	running := original
	adjustments := []models.Adjustment{}

	if req.SelectedOffer != nil && Eligible(*req.SelectedOffer, req.Quantity, req.Now) {
		total, line, ok := applyOffer(req.BaseUnitPrice, req.Quantity, *req.SelectedOffer)
		if ok {
			running = total
			if line.Amount != 0 {
				adjustments = append(adjustments, line)
			}
		}
	}

	result := models.QuoteResult{OriginalTotal: original}

	// Membership is an absolute override, not a stacked discount: a member
	// never pays, whatever the offer computed. The offer line above stays
	// in the breakdown for transparency.
	if req.MembershipActive {
		result.MembershipApplied = true
		adjustments = append(adjustments, models.Adjustment{
			Description: MembershipLine,
			Amount:      -running,
		})
		running = 0
	} else if req.Coupon != nil && req.Coupon.DiscountPercent > 0 {
		discount := running * int64(req.Coupon.DiscountPercent) / 100
		if discount > 0 {
			result.CouponDiscountAmount = discount
			adjustments = append(adjustments, models.Adjustment{
				Description: fmt.Sprintf("Coupon %s (%d%% off)", req.Coupon.Code, req.Coupon.DiscountPercent),
				Amount:      -discount,
			})
			running -= discount
		}
	}

	if running < 0 {
		running = 0
	}

	result.Adjustments = adjustments
	result.FinalTotal = running
	result.SavingsTotal = original - running
	return result
}
