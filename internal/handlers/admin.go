package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/booking"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
)

type AdminHandler struct {
	core   *booking.Service
	logger *slog.Logger
}

func NewAdminHandler(core *booking.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{core: core, logger: logger}
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (model.Actor, string, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "not authenticated")
		return model.Actor{}, "", false
	}
	if !actor.IsAdmin() {
		writeErrorMessage(w, http.StatusForbidden, "admin role required")
		return model.Actor{}, "", false
	}
	tenant, err := tenantID(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return model.Actor{}, "", false
	}
	return actor, tenant, true
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type adminListResponse struct {
	Bookings   []bookingResponse `json:"bookings"`
	Pagination pagination        `json:"pagination"`
}

// List handles GET /api/admin/bookings with optional from, to, staffId,
// status, page and limit query parameters.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	_, tenant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter booking.ListFilter
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "from must be an RFC 3339 datetime")
			return
		}
		from = from.UTC()
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "to must be an RFC 3339 datetime")
			return
		}
		to = to.UTC()
		filter.To = &to
	}
	filter.StaffID = strings.TrimSpace(q.Get("staffId"))
	filter.Status = strings.ToUpper(strings.TrimSpace(q.Get("status")))
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		filter.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	bookings, total, err := h.core.List(r.Context(), tenant, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingResponse(b))
	}
	totalPages := 0
	if filter.Limit > 0 {
		totalPages = (total + filter.Limit - 1) / filter.Limit
	}
	writeJSON(w, http.StatusOK, adminListResponse{
		Bookings: items,
		Pagination: pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Create handles POST /api/admin/bookings. Admins book on behalf of any
// customer; ban, active-flag and working-hours checks do not apply, overlap
// and time off still do.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, tenant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	bh := BookingHandler{core: h.core, logger: h.logger}
	in, err := bh.decodeCreate(r)
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

// Cancel handles DELETE /api/admin/bookings/{id}. The cutoff does not apply
// to admin cancellations.
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, tenant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	if err := h.core.Cancel(r.Context(), tenant, actor, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
