package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"ticket-pricing-api/internal/models"
	"ticket-pricing-api/internal/service"
	"ticket-pricing-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default, payloads here are small
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// CreateEvent handles POST /events
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Event
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.ID = validation.SanitizeString(req.ID)
	req.Title = validation.SanitizeString(req.Title)
	req.Venue = validation.SanitizeString(req.Venue)

	if err := h.service.CreateEvent(r.Context(), req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, req)
}

// GetEvent handles GET /events/{event_id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := validation.SanitizeString(chi.URLParam(r, "event_id"))

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, event)
}

// CreateOffer handles POST /events/{event_id}/offers
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Offer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.ID = validation.SanitizeString(req.ID)
	req.EventID = validation.SanitizeString(chi.URLParam(r, "event_id"))
	req.Title = validation.SanitizeString(req.Title)
	req.Description = validation.SanitizeString(req.Description)

	if err := h.service.CreateOffer(r.Context(), req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, req)
}

// ListOffers handles GET /events/{event_id}/offers
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	eventID := validation.SanitizeString(chi.URLParam(r, "event_id"))

	offers, err := h.service.ListOffers(r.Context(), eventID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if offers == nil {
		offers = []models.Offer{}
	}
	h.respondJSON(w, http.StatusOK, offers)
}

// GetEligibleOffers handles GET /events/{event_id}/offers/eligible
func (h *Handler) GetEligibleOffers(w http.ResponseWriter, r *http.Request) {
	eventID := validation.SanitizeString(chi.URLParam(r, "event_id"))

	quantityParam := r.URL.Query().Get("quantity")
	if quantityParam == "" {
		h.respondError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	quantity, err := strconv.Atoi(quantityParam)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "quantity must be an integer")
		return
	}

	// Optional 'now' for deterministic eligibility checks
	now := time.Now().UTC()
	if nowParam := r.URL.Query().Get("now"); nowParam != "" {
		parsed, err := validation.ValidateTimeString(validation.SanitizeString(nowParam))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'now' parameter, must be RFC3339 format")
			return
		}
		now = parsed.UTC()
	}

	response, err := h.service.EligibleOffers(r.Context(), eventID, quantity, now)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// CreateCoupon handles POST /coupons
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.CouponRule
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.Code = validation.SanitizeString(req.Code)

	if err := h.service.CreateCouponRule(r.Context(), req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, req)
}

// CreateMembership handles POST /memberships
func (h *Handler) CreateMembership(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Membership
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.UserID = validation.SanitizeString(req.UserID)

	if err := h.service.CreateMembership(r.Context(), req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, req)
}

// QuoteBooking handles POST /bookings/quote
func (h *Handler) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.QuoteBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.EventID = validation.SanitizeString(req.EventID)
	req.UserID = validation.SanitizeString(req.UserID)
	req.OfferID = validation.SanitizeString(req.OfferID)
	req.CouponCode = validation.SanitizeString(req.CouponCode)

	result, err := h.service.QuoteBooking(r.Context(), req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
