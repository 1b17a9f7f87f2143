package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ticket-pricing-api/internal/cache"
	"ticket-pricing-api/internal/database"
	"ticket-pricing-api/internal/events"
	"ticket-pricing-api/internal/features"
	"ticket-pricing-api/internal/models"
	"ticket-pricing-api/internal/pricing"
	"ticket-pricing-api/internal/tracing"
	"ticket-pricing-api/internal/validation"
)

const (
	// DefaultMaxQuantity is the platform-wide per-booking ticket cap.
	DefaultMaxQuantity = 25
	// DefaultCatalogTTL bounds staleness of cached offer catalogs.
	DefaultCatalogTTL = 60 * time.Second
)

// Service provides the business logic for the ticket pricing API. It owns
// the collaborator lookups (offer store, coupon resolution, membership
// check) and hands the pricing engine a fully resolved request.
type Service struct {
	db          *database.DB
	cache       cache.Cache
	events      *events.Manager
	flags       *features.Manager
	maxQuantity int
	catalogTTL  time.Duration
}

// Options configures optional service collaborators.
type Options struct {
	Cache       cache.Cache
	Events      *events.Manager
	Flags       *features.Manager
	MaxQuantity int
	CatalogTTL  time.Duration
}

// NewService creates a service with default collaborators: an in-memory
// cache, event hooks disabled, and all feature flags on.
func NewService(db *database.DB) *Service {
	return NewServiceWithOptions(db, Options{})
}

// NewServiceWithOptions creates a service with custom collaborators.
func NewServiceWithOptions(db *database.DB, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NewInMemoryCache()
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.Flags == nil {
		opts.Flags = features.NewManager()
		opts.Flags.Register(features.FeatureCacheEnabled, true, "offer catalog cache")
		opts.Flags.Register(features.FeatureEventHooksEnabled, true, "event-driven hooks")
		opts.Flags.Register(features.FeatureOfferPreviews, true, "quoted totals in eligible-offer listings")
	}
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = DefaultMaxQuantity
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = DefaultCatalogTTL
	}

	return &Service{
		db:          db,
		cache:       opts.Cache,
		events:      opts.Events,
		flags:       opts.Flags,
		maxQuantity: opts.MaxQuantity,
		catalogTTL:  opts.CatalogTTL,
	}
}

// MaxQuantity returns the per-booking ticket cap.
func (s *Service) MaxQuantity() int {
	return s.maxQuantity
}

// CreateEvent creates or updates an event.
func (s *Service) CreateEvent(ctx context.Context, event models.Event) error {
	if err := validation.ValidateEvent(event); err != nil {
		return err
	}

	return s.db.UpsertEvent(event)
}

// GetEvent returns one event by id.
func (s *Service) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		return models.Event{}, err
	}

	return s.db.GetEvent(eventID)
}

// CreateOffer creates or updates an offer and invalidates the event's
// cached catalog.
func (s *Service) CreateOffer(ctx context.Context, offer models.Offer) error {
	if err := validation.ValidateOffer(offer); err != nil {
		return err
	}

	if _, err := s.db.GetEvent(offer.EventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("event %s not found", offer.EventID)
		}
		return fmt.Errorf("failed to look up event: %w", err)
	}

	if err := s.db.UpsertOffer(offer); err != nil {
		return err
	}

	if s.flags.IsEnabled(features.FeatureCacheEnabled) {
		// Best effort: a stale catalog expires on its own TTL.
		_ = s.cache.Delete(ctx, cache.OfferCatalogKey(offer.EventID))
	}

	if s.flags.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishOfferCreated(ctx, offer)
	}

	return nil
}

// ListOffers returns all offers attached to an event, read through the
// catalog cache when it is enabled.
func (s *Service) ListOffers(ctx context.Context, eventID string) ([]models.Offer, error) {
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		return nil, err
	}

	useCache := s.flags.IsEnabled(features.FeatureCacheEnabled)
	key := cache.OfferCatalogKey(eventID)

	if useCache {
		var cached []models.Offer
		if err := cache.GetJSON(ctx, s.cache, key, &cached); err == nil {
			return cached, nil
		}
	}

	offers, err := s.db.ListOffers(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	if useCache {
		_ = cache.SetJSON(ctx, s.cache, key, offers, s.catalogTTL)
	}

	return offers, nil
}

// EligibleOffers returns the offers that could apply for a quantity at a
// point in time, with the total each would produce for the booking form.
func (s *Service) EligibleOffers(ctx context.Context, eventID string, quantity int, now time.Time) (models.EligibleOffersResponse, error) {
	if quantity < 1 || quantity > s.maxQuantity {
		return models.EligibleOffersResponse{}, &validation.ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("must be between 1 and %d", s.maxQuantity),
		}
	}

	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return models.EligibleOffersResponse{}, err
	}

	offers, err := s.ListOffers(ctx, eventID)
	if err != nil {
		return models.EligibleOffersResponse{}, err
	}

	previews := s.flags.IsEnabled(features.FeatureOfferPreviews)

	var eligible []models.EligibleOffer
	for _, offer := range offers {
		if !pricing.Eligible(offer, quantity, now) {
			continue
		}

		entry := models.EligibleOffer{
			OfferID: offer.ID,
			Kind:    offer.Kind,
			Title:   offer.Title,
		}
		if previews {
			result := pricing.Quote(models.QuoteRequest{
				BaseUnitPrice: event.BaseTicketPrice,
				Quantity:      quantity,
				SelectedOffer: &offer,
				Now:           now,
			})
			entry.FinalTotal = result.FinalTotal
		}
		eligible = append(eligible, entry)
	}

	return models.EligibleOffersResponse{
		EventID:        eventID,
		Quantity:       quantity,
		EligibleOffers: eligible,
	}, nil
}

// CreateCouponRule creates or updates a coupon rule.
func (s *Service) CreateCouponRule(ctx context.Context, rule models.CouponRule) error {
	if err := validation.ValidateCouponRule(rule); err != nil {
		return err
	}

	if err := s.db.UpsertCouponRule(rule); err != nil {
		return err
	}

	if s.flags.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishCouponCreated(ctx, rule)
	}

	return nil
}

// CreateMembership creates or updates a user's membership.
func (s *Service) CreateMembership(ctx context.Context, membership models.Membership) error {
	if err := validation.ValidateUUID(membership.UserID, "user_id"); err != nil {
		return err
	}

	return s.db.UpsertMembership(membership)
}

// QuoteBooking resolves every collaborator input for a booking attempt and
// runs the pricing engine. Promotion inputs degrade silently: an unknown
// offer, an expired coupon, or a lapsed membership fall back to full price.
// Only a malformed request shape is rejected.
func (s *Service) QuoteBooking(ctx context.Context, req models.QuoteBookingRequest) (models.QuoteResult, error) {
	ctx, span := tracing.GetTracer().StartSpan(ctx, "service.QuoteBooking")
	defer span.End()

	if err := validation.ValidateUUID(req.EventID, "event_id"); err != nil {
		return models.QuoteResult{}, err
	}

	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}

	event, err := s.db.GetEvent(req.EventID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.QuoteResult{}, fmt.Errorf("event %s not found", req.EventID)
		}
		return models.QuoteResult{}, fmt.Errorf("failed to look up event: %w", err)
	}

	quoteReq := models.QuoteRequest{
		BaseUnitPrice:    event.BaseTicketPrice,
		Quantity:         req.Quantity,
		SelectedOffer:    s.resolveOffer(ctx, req.EventID, req.OfferID),
		MembershipActive: s.membershipActive(req.UserID, now),
		Coupon:           s.resolveCoupon(req.CouponCode, now),
		Now:              now,
	}

	if err := validation.ValidateQuoteRequest(quoteReq, s.maxQuantity); err != nil {
		return models.QuoteResult{}, err
	}

	result := pricing.Quote(quoteReq)

	span.SetAttributes(
		attribute.String("booking.event_id", req.EventID),
		attribute.Int("booking.quantity", req.Quantity),
		attribute.Int64("booking.final_total", result.FinalTotal),
	)

	if s.flags.IsEnabled(features.FeatureEventHooksEnabled) {
		s.events.PublishQuoteComputed(ctx, events.QuoteComputedData{
			EventID:    req.EventID,
			UserID:     req.UserID,
			Quantity:   req.Quantity,
			OfferID:    req.OfferID,
			CouponCode: req.CouponCode,
			Result:     result,
			QuotedAt:   now,
		})
	}

	return result, nil
}

// resolveOffer fetches the selected offer, preferring the cached catalog.
// Any failure resolves to no offer: a missing promotion must not block the
// booking.
func (s *Service) resolveOffer(ctx context.Context, eventID, offerID string) *models.Offer {
	if offerID == "" {
		return nil
	}

	offers, err := s.ListOffers(ctx, eventID)
	if err == nil {
		for i := range offers {
			if offers[i].ID == offerID {
				return &offers[i]
			}
		}
		return nil
	}

	offer, err := s.db.GetOffer(eventID, offerID)
	if err != nil {
		return nil
	}
	return &offer
}

// resolveCoupon turns a raw code into an applied percentage. Unknown,
// inactive, or out-of-window codes resolve to no coupon; the engine never
// sees a code it has to interpret.
func (s *Service) resolveCoupon(code string, now time.Time) *models.Coupon {
	if code == "" {
		return nil
	}
	if err := validation.ValidateCouponCode(code); err != nil {
		return nil
	}

	rule, err := s.db.GetCouponRule(code)
	if err != nil {
		return nil
	}
	if !rule.Active {
		return nil
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil
	}

	return &models.Coupon{
		Code:            rule.Code,
		DiscountPercent: rule.DiscountPercent,
	}
}

// membershipActive reports whether the user holds an unexpired membership
// at the evaluation time.
func (s *Service) membershipActive(userID string, now time.Time) bool {
	if userID == "" {
		return false
	}
	if err := validation.ValidateUUID(userID, "user_id"); err != nil {
		return false
	}

	membership, err := s.db.GetMembership(userID)
	if err != nil {
		return false
	}

	return membership.ExpiresAt == nil || !membership.ExpiresAt.Before(now)
}
