package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"barberbook/internal/apperr"
	"barberbook/internal/booking"
	"barberbook/internal/model"
)

type BookingHandler struct {
	ledger *booking.Ledger
	auth   *AuthHandler
	logger *slog.Logger
}

func NewBookingHandler(ledger *booking.Ledger, auth *AuthHandler, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{ledger: ledger, auth: auth, logger: logger}
}

type createBookingRequest struct {
	BarberID      string `json:"barber_id" validate:"required"`
	ServiceID     string `json:"service_id" validate:"required"`
	StartTime     string `json:"start_time" validate:"required"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes"`
}

type bookingResponse struct {
	ID            string    `json:"id"`
	BarberID      string    `json:"barber_id"`
	ServiceID     string    `json:"service_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		BarberID:      b.BarberID,
		ServiceID:     b.ServiceID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        b.Status,
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt,
	}
}

type slotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// Slots lists available start times for a barber, service and date. A day the
// barber does not work returns an empty list, not an error.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q := r.URL.Query()
	serviceID := q.Get("service_id")
	if serviceID == "" {
		writeError(w, r, h.logger, apperr.Validation("service_id query parameter required"))
		return
	}
	day, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("date must be formatted YYYY-MM-DD"))
		return
	}

	slots, err := h.ledger.AvailableSlots(r.Context(), ps.ByName("id"), serviceID, day)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := slotsResponse{Date: slots.Date.Format("2006-01-02"), Slots: make([]string, 0, len(slots.Starts))}
	for _, s := range slots.Starts {
		out.Slots = append(out.Slots, s.Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ident, err := h.auth.Identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("start_time must be RFC 3339"))
		return
	}

	create := booking.CreateRequest{
		BarberID:      req.BarberID,
		ServiceID:     req.ServiceID,
		StartTime:     start,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	}
	// The booking always belongs to the authenticated caller: the token email
	// overrides whatever the payload carries, so cancel and /bookings/me line
	// up with the account that made the booking.
	create.CustomerEmail = ident.Email
	if create.CustomerName == "" {
		if user, err := h.auth.users.GetUser(r.Context(), ident.UserID); err == nil {
			create.CustomerName = user.FullName
			if create.CustomerPhone == "" {
				create.CustomerPhone = user.PhoneNumber
			}
		}
	}

	b, err := h.ledger.Create(r.Context(), create)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ident, err := h.auth.Identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	b, err := h.ledger.Cancel(r.Context(), ps.ByName("id"), ident)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

// ListByBarber returns a barber's bookings; only the barber themselves may
// see the list.
func (h *BookingHandler) ListByBarber(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ident, err := h.auth.Identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	barberID := r.URL.Query().Get("barber_id")
	if barberID == "" {
		writeError(w, r, h.logger, apperr.Validation("barber_id query parameter required"))
		return
	}
	if ident.UserID != barberID {
		writeError(w, r, h.logger, apperr.Forbidden("not the owner of this schedule"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, apperr.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}
	bookings, err := h.ledger.ListByBarber(r.Context(), barberID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ident, err := h.auth.Identity(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	bookings, err := h.ledger.ListByCustomer(r.Context(), ident.Email)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponses(bookings))
}

func toBookingResponses(bs []model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBookingResponse(b))
	}
	return out
}
