package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/booking"
)

type BookingHandler struct {
	core   *booking.Service
	logger *slog.Logger
}

func NewBookingHandler(core *booking.Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{core: core, logger: logger}
}

type createBookingRequest struct {
	ServiceID     string `json:"serviceId"`
	StaffID       string `json:"staffId"`
	CustomerEmail string `json:"customerEmail"`
	Start         string `json:"start"`
}

func (h *BookingHandler) decodeCreate(r *http.Request) (booking.CreateInput, error) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return booking.CreateInput{}, errBadBody
	}

	in := booking.CreateInput{
		ServiceID:     strings.TrimSpace(req.ServiceID),
		StaffID:       strings.TrimSpace(req.StaffID),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
	}
	if req.Start != "" {
		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			return booking.CreateInput{}, errBadStart
		}
		in.StartAt = start.UTC()
	}
	return in, nil
}

var (
	errBadBody  = fmt.Errorf("%w: invalid json body", booking.ErrValidation)
	errBadStart = fmt.Errorf("%w: start must be an RFC 3339 datetime", booking.ErrValidation)
)

// Create handles POST /api/bookings for the customer self-service path.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	tenant, err := tenantID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := h.decodeCreate(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	b, err := h.core.Create(r.Context(), tenant, actor, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

type myBookingItem struct {
	ID              string `json:"id"`
	ServiceID       string `json:"serviceId"`
	ServiceName     string `json:"serviceName"`
	DurationMinutes int    `json:"durationMinutes"`
	StaffID         string `json:"staffId"`
	StaffName       string `json:"staffName"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Status          string `json:"status"`
}

// ListMine handles GET /api/bookings/me: the caller's upcoming CONFIRMED
// bookings with joined service and staff display fields.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	tenant, err := tenantID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	details, err := h.core.ListMine(r.Context(), tenant, actor.Email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]myBookingItem, 0, len(details))
	for _, d := range details {
		items = append(items, myBookingItem{
			ID:              d.ID,
			ServiceID:       d.ServiceID,
			ServiceName:     d.ServiceName,
			DurationMinutes: d.ServiceDurationMinutes,
			StaffID:         d.StaffID,
			StaffName:       d.StaffName,
			Start:           d.StartAt.UTC().Format(time.RFC3339),
			End:             d.EndAt.UTC().Format(time.RFC3339),
			Status:          string(d.Status),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Cancel handles DELETE /api/bookings/{id}. The cancellation policy decides
// per acting identity; admins reach the same core path via the admin route.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	tenant, err := tenantID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.core.Cancel(r.Context(), tenant, actor, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type slotsResponse struct {
	Date      string   `json:"date"`
	StaffID   string   `json:"staffId"`
	ServiceID string   `json:"serviceId"`
	Slots     []string `json:"slots"`
}

// Slots handles GET /api/availability?staffId&serviceId&date (public).
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staffId"))
	serviceID := strings.TrimSpace(q.Get("serviceId"))
	if staffID == "" || serviceID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "staffId and serviceId are required")
		return
	}
	day, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.core.Slots(r.Context(), tenant, staffID, serviceID, day)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.UTC().Format(time.RFC3339))
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		Date:      day.Format("2006-01-02"),
		StaffID:   staffID,
		ServiceID: serviceID,
		Slots:     out,
	})
}
