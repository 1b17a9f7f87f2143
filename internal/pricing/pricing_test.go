package pricing

import (
	"reflect"
	"testing"
	"time"

	"ticket-pricing-api/internal/models"
)

var testNow = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestQuote_NoOfferNoOverrides(t *testing.T) {
	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      3,
		Now:           testNow,
	})

	if result.OriginalTotal != 3000 {
		t.Errorf("Expected original total 3000, got %d", result.OriginalTotal)
	}
	if result.FinalTotal != 3000 {
		t.Errorf("Expected final total 3000, got %d", result.FinalTotal)
	}
	if len(result.Adjustments) != 0 {
		t.Errorf("Expected no adjustments, got %d", len(result.Adjustments))
	}
	if result.SavingsTotal != 0 {
		t.Errorf("Expected savings 0, got %d", result.SavingsTotal)
	}
}

func TestQuote_GroupDiscount(t *testing.T) {
	offer := models.Offer{
		ID:              "b2f1c9d0-7a44-4e5e-9c1a-2f0d8e6b3a17",
		Kind:            models.KindGroupDiscount,
		Title:           "Gang of Four",
		PriceAdjustment: 500,
		MinQuantity:     4,
		GroupSize:       4,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      4,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 2000 {
		t.Errorf("Expected final total 2000, got %d", result.FinalTotal)
	}
	if result.SavingsTotal != 2000 {
		t.Errorf("Expected savings 2000, got %d", result.SavingsTotal)
	}
	if len(result.Adjustments) != 1 {
		t.Fatalf("Expected 1 adjustment, got %d", len(result.Adjustments))
	}
	if result.Adjustments[0].Amount != -2000 {
		t.Errorf("Expected offer line -2000, got %d", result.Adjustments[0].Amount)
	}
	if result.Adjustments[0].Description != "Gang of Four" {
		t.Errorf("Expected offer title as description, got %q", result.Adjustments[0].Description)
	}
}

func TestQuote_MembershipDominatesOffer(t *testing.T) {
	offer := models.Offer{
		ID:              "b2f1c9d0-7a44-4e5e-9c1a-2f0d8e6b3a17",
		Kind:            models.KindGroupDiscount,
		PriceAdjustment: 500,
		MinQuantity:     4,
		GroupSize:       4,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice:    1000,
		Quantity:         4,
		SelectedOffer:    &offer,
		MembershipActive: true,
		Now:              testNow,
	})

	if result.FinalTotal != 0 {
		t.Errorf("Expected final total 0 for member, got %d", result.FinalTotal)
	}
	if !result.MembershipApplied {
		t.Error("Expected membership_applied to be true")
	}
	if result.SavingsTotal != 4000 {
		t.Errorf("Expected savings 4000, got %d", result.SavingsTotal)
	}
	// Offer line stays in the breakdown, membership line follows it.
	if len(result.Adjustments) != 2 {
		t.Fatalf("Expected 2 adjustments, got %d", len(result.Adjustments))
	}
	if result.Adjustments[0].Amount != -2000 {
		t.Errorf("Expected offer line -2000, got %d", result.Adjustments[0].Amount)
	}
	if result.Adjustments[1].Description != MembershipLine {
		t.Errorf("Expected membership line, got %q", result.Adjustments[1].Description)
	}
	if result.Adjustments[1].Amount != -2000 {
		t.Errorf("Expected membership line -2000, got %d", result.Adjustments[1].Amount)
	}
}

func TestQuote_AddPersonSurcharge(t *testing.T) {
	offer := models.Offer{
		ID:              "5b7d2e81-93c6-4f0a-b1d4-8e6f3a2c9d05",
		Kind:            models.KindAddPerson,
		PriceAdjustment: 450,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 2450 {
		t.Errorf("Expected final total 2450, got %d", result.FinalTotal)
	}
	if len(result.Adjustments) != 1 {
		t.Fatalf("Expected 1 adjustment, got %d", len(result.Adjustments))
	}
	if result.Adjustments[0].Amount != 450 {
		t.Errorf("Expected surcharge line 450, got %d", result.Adjustments[0].Amount)
	}
	// Surcharges yield negative savings, original - final must still hold.
	if result.SavingsTotal != -450 {
		t.Errorf("Expected savings -450, got %d", result.SavingsTotal)
	}
}

func TestQuote_AddPersonWithinGroupSize(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindAddPerson,
		PriceAdjustment: 450,
		MinQuantity:     1,
		GroupSize:       4,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      3,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	// No tickets beyond the group size, so no surcharge and no line.
	if result.FinalTotal != 3000 {
		t.Errorf("Expected final total 3000, got %d", result.FinalTotal)
	}
	if len(result.Adjustments) != 0 {
		t.Errorf("Expected no adjustments, got %d", len(result.Adjustments))
	}
}

func TestQuote_CouponOnly(t *testing.T) {
	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      5,
		Coupon:        &models.Coupon{Code: "WELCOME10", DiscountPercent: 10},
		Now:           testNow,
	})

	if result.FinalTotal != 4500 {
		t.Errorf("Expected final total 4500, got %d", result.FinalTotal)
	}
	if result.CouponDiscountAmount != 500 {
		t.Errorf("Expected coupon discount 500, got %d", result.CouponDiscountAmount)
	}
	if len(result.Adjustments) != 1 {
		t.Fatalf("Expected 1 adjustment, got %d", len(result.Adjustments))
	}
	if result.Adjustments[0].Amount != -500 {
		t.Errorf("Expected coupon line -500, got %d", result.Adjustments[0].Amount)
	}
}

func TestQuote_CouponRoundsDown(t *testing.T) {
	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 333,
		Quantity:      1,
		Coupon:        &models.Coupon{Code: "ODD", DiscountPercent: 10},
		Now:           testNow,
	})

	// 333 * 10 / 100 = 33.3, floored to 33.
	if result.CouponDiscountAmount != 33 {
		t.Errorf("Expected coupon discount 33, got %d", result.CouponDiscountAmount)
	}
	if result.FinalTotal != 300 {
		t.Errorf("Expected final total 300, got %d", result.FinalTotal)
	}
}

func TestQuote_CouponAfterOfferPricing(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindFlatRate,
		PriceAdjustment: 800,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Coupon:        &models.Coupon{Code: "STACK25", DiscountPercent: 25},
		Now:           testNow,
	})

	// Offer re-prices to 1600, coupon takes 25% of that, not of 2000.
	if result.CouponDiscountAmount != 400 {
		t.Errorf("Expected coupon discount 400, got %d", result.CouponDiscountAmount)
	}
	if result.FinalTotal != 1200 {
		t.Errorf("Expected final total 1200, got %d", result.FinalTotal)
	}
}

func TestQuote_MembershipShortCircuitsCoupon(t *testing.T) {
	result := Quote(models.QuoteRequest{
		BaseUnitPrice:    1000,
		Quantity:         2,
		MembershipActive: true,
		Coupon:           &models.Coupon{Code: "WELCOME10", DiscountPercent: 10},
		Now:              testNow,
	})

	if result.FinalTotal != 0 {
		t.Errorf("Expected final total 0, got %d", result.FinalTotal)
	}
	if result.CouponDiscountAmount != 0 {
		t.Errorf("Expected no coupon discount for member, got %d", result.CouponDiscountAmount)
	}
}

func TestQuote_NoStagSurcharge(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindNoStag,
		PriceAdjustment: 300,
		MinQuantity:     1,
		GroupSize:       2,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      1,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 1300 {
		t.Errorf("Expected final total 1300, got %d", result.FinalTotal)
	}

	// At or above the group size the surcharge does not apply.
	result = Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 2000 {
		t.Errorf("Expected final total 2000, got %d", result.FinalTotal)
	}
	if len(result.Adjustments) != 0 {
		t.Errorf("Expected no adjustments for non-stag booking, got %d", len(result.Adjustments))
	}
}

func TestQuote_RazorpayFeeOncePerBooking(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindRazorpayAbove,
		PriceAdjustment: 24,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	for _, quantity := range []int{1, 3, 7} {
		result := Quote(models.QuoteRequest{
			BaseUnitPrice: 1000,
			Quantity:      quantity,
			SelectedOffer: &offer,
			Now:           testNow,
		})

		expected := int64(1000*quantity + 24)
		if result.FinalTotal != expected {
			t.Errorf("quantity %d: expected final total %d, got %d", quantity, expected, result.FinalTotal)
		}
	}
}

func TestQuote_WomenFlashSaleFreeTicket(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindWomenFlashSale,
		PriceAdjustment: 0,
		MinQuantity:     1,
		MaxQuantity:     intPtr(1),
		GroupSize:       1,
		Active:          true,
		ValidFrom:       timePtr(testNow.Add(-time.Hour)),
		ValidUntil:      timePtr(testNow.Add(time.Hour)),
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      1,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 0 {
		t.Errorf("Expected free ticket, got %d", result.FinalTotal)
	}
	if result.SavingsTotal != 1000 {
		t.Errorf("Expected savings 1000, got %d", result.SavingsTotal)
	}
}

func TestQuote_WomenFlashSaleOverCap(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindWomenFlashSale,
		PriceAdjustment: 0,
		MinQuantity:     1,
		MaxQuantity:     intPtr(1),
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	// Over max_quantity: the offer is ineligible and the booking falls
	// back to the full price rather than failing.
	if result.FinalTotal != 2000 {
		t.Errorf("Expected fallback to 2000, got %d", result.FinalTotal)
	}
	if len(result.Adjustments) != 0 {
		t.Errorf("Expected no adjustments, got %d", len(result.Adjustments))
	}
}

func TestQuote_StudentDiscountFlatPerTicket(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindStudentDiscount,
		PriceAdjustment: 600,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      3,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 1800 {
		t.Errorf("Expected final total 1800, got %d", result.FinalTotal)
	}
}

func TestQuote_NegativeAdjustedTotalClampsToZero(t *testing.T) {
	offer := models.Offer{
		Kind:            models.KindFlatRate,
		PriceAdjustment: -100,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 0 {
		t.Errorf("Expected clamped final total 0, got %d", result.FinalTotal)
	}
	if result.SavingsTotal != 2000 {
		t.Errorf("Expected savings 2000, got %d", result.SavingsTotal)
	}
}

func TestQuote_UnknownKindFallsBack(t *testing.T) {
	offer := models.Offer{
		Kind:            models.OfferKind("buy_one_get_one"),
		PriceAdjustment: 500,
		MinQuantity:     1,
		GroupSize:       1,
		Active:          true,
	}

	result := Quote(models.QuoteRequest{
		BaseUnitPrice: 1000,
		Quantity:      2,
		SelectedOffer: &offer,
		Now:           testNow,
	})

	if result.FinalTotal != 2000 {
		t.Errorf("Expected fallback to 2000, got %d", result.FinalTotal)
	}
}

func TestEligible_QuantityBounds(t *testing.T) {
	offer := models.Offer{
		Kind:        models.KindGroupDiscount,
		MinQuantity: 4,
		GroupSize:   4,
		Active:      true,
	}

	if Eligible(offer, 3, testNow) {
		t.Error("Expected ineligible at quantity 3 with min_quantity 4")
	}
	if !Eligible(offer, 4, testNow) {
		t.Error("Expected eligible at quantity 4 with min_quantity 4")
	}

	offer.MaxQuantity = intPtr(4)
	if !Eligible(offer, 4, testNow) {
		t.Error("Expected eligible at quantity 4 with max_quantity 4")
	}
	if Eligible(offer, 5, testNow) {
		t.Error("Expected ineligible at quantity 5 with max_quantity 4")
	}
}

func TestEligible_ValidityWindowBoundary(t *testing.T) {
	until := testNow
	offer := models.Offer{
		Kind:        models.KindFlatRate,
		MinQuantity: 1,
		GroupSize:   1,
		Active:      true,
		ValidFrom:   timePtr(testNow.Add(-24 * time.Hour)),
		ValidUntil:  &until,
	}

	// Inclusive at both ends.
	if !Eligible(offer, 1, testNow) {
		t.Error("Expected eligible at now == valid_until")
	}
	if Eligible(offer, 1, testNow.Add(time.Second)) {
		t.Error("Expected ineligible one second past valid_until")
	}
	if !Eligible(offer, 1, testNow.Add(-24*time.Hour)) {
		t.Error("Expected eligible at now == valid_from")
	}
	if Eligible(offer, 1, testNow.Add(-24*time.Hour-time.Second)) {
		t.Error("Expected ineligible one second before valid_from")
	}
}

func TestEligible_InactiveOffer(t *testing.T) {
	offer := models.Offer{
		Kind:        models.KindFlatRate,
		MinQuantity: 1,
		GroupSize:   1,
		Active:      false,
	}

	if Eligible(offer, 1, testNow) {
		t.Error("Expected inactive offer to be ineligible")
	}
}

func TestEligible_MalformedOffer(t *testing.T) {
	cases := []struct {
		name  string
		offer models.Offer
	}{
		{
			name: "max below min",
			offer: models.Offer{
				Kind:        models.KindFlatRate,
				MinQuantity: 4,
				MaxQuantity: intPtr(2),
				GroupSize:   1,
				Active:      true,
			},
		},
		{
			name: "zero min quantity",
			offer: models.Offer{
				Kind:      models.KindFlatRate,
				GroupSize: 1,
				Active:    true,
			},
		},
		{
			name: "zero group size",
			offer: models.Offer{
				Kind:        models.KindFlatRate,
				MinQuantity: 1,
				Active:      true,
			},
		},
		{
			name: "unknown kind",
			offer: models.Offer{
				Kind:        models.OfferKind("mystery"),
				MinQuantity: 1,
				GroupSize:   1,
				Active:      true,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Eligible(tc.offer, 5, testNow) {
				t.Error("Expected malformed offer to be ineligible")
			}
		})
	}
}

func TestQuote_Properties(t *testing.T) {
	offers := []*models.Offer{
		nil,
		{Kind: models.KindFlatRate, PriceAdjustment: 750, MinQuantity: 1, GroupSize: 1, Active: true},
		{Kind: models.KindGroupDiscount, PriceAdjustment: 500, MinQuantity: 4, GroupSize: 4, Active: true},
		{Kind: models.KindAddPerson, PriceAdjustment: 450, MinQuantity: 1, GroupSize: 2, Active: true},
		{Kind: models.KindNoStag, PriceAdjustment: 300, MinQuantity: 1, GroupSize: 2, Active: true},
		{Kind: models.KindRazorpayAbove, PriceAdjustment: 24, MinQuantity: 1, GroupSize: 1, Active: true},
		{Kind: models.KindWomenFlashSale, PriceAdjustment: 0, MinQuantity: 1, MaxQuantity: intPtr(1), GroupSize: 1, Active: true},
		{Kind: models.KindFlatRate, PriceAdjustment: -50, MinQuantity: 1, GroupSize: 1, Active: true},
	}
	coupons := []*models.Coupon{
		nil,
		{Code: "TEN", DiscountPercent: 10},
		{Code: "ALL", DiscountPercent: 100},
	}

	for _, offer := range offers {
		for _, coupon := range coupons {
			for _, member := range []bool{false, true} {
				for quantity := 1; quantity <= 6; quantity++ {
					req := models.QuoteRequest{
						BaseUnitPrice:    1000,
						Quantity:         quantity,
						SelectedOffer:    offer,
						MembershipActive: member,
						Coupon:           coupon,
						Now:              testNow,
					}
					result := Quote(req)

					if result.FinalTotal < 0 {
						t.Errorf("%+v: negative final total %d", req, result.FinalTotal)
					}
					if member && result.FinalTotal != 0 {
						t.Errorf("%+v: member paid %d", req, result.FinalTotal)
					}
					if result.OriginalTotal-result.FinalTotal != result.SavingsTotal {
						t.Errorf("%+v: savings %d inconsistent with original %d and final %d",
							req, result.SavingsTotal, result.OriginalTotal, result.FinalTotal)
					}

					again := Quote(req)
					if !reflect.DeepEqual(result, again) {
						t.Errorf("%+v: quote is not deterministic", req)
					}
				}
			}
		}
	}
}
