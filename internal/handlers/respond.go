package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/booking"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
)

// TenantIDHeader scopes every request to one salon. Tenant id always
// travels as an explicit value, never as ambient state.
const TenantIDHeader = "X-Tenant-Id"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps the core error taxonomy onto HTTP statuses. Unexpected
// failures are logged and surfaced as an opaque 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrValidation):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "err", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// tenantID resolves the tenant for the request. The header is required; a
// token bound to a different tenant is rejected.
func tenantID(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(TenantIDHeader))
	tokenTenant := tokenTenantFromContext(r.Context())
	if header == "" {
		if tokenTenant != "" {
			return tokenTenant, nil
		}
		return "", errors.New("missing " + TenantIDHeader + " header")
	}
	if tokenTenant != "" && tokenTenant != header {
		return "", errors.New("token is bound to another tenant")
	}
	return header, nil
}

type bookingResponse struct {
	ID            string `json:"id"`
	ServiceID     string `json:"serviceId"`
	StaffID       string `json:"staffId"`
	CustomerEmail string `json:"customerEmail"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status"`
	CreatedBy     string `json:"createdBy"`
	CancelledBy   string `json:"cancelledBy,omitempty"`
	CancelledAt   string `json:"cancelledAt,omitempty"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	resp := bookingResponse{
		ID:            b.ID,
		ServiceID:     b.ServiceID,
		StaffID:       b.StaffID,
		CustomerEmail: b.CustomerEmail,
		Start:         b.StartAt.UTC().Format(time.RFC3339),
		End:           b.EndAt.UTC().Format(time.RFC3339),
		Status:        string(b.Status),
		CreatedBy:     b.CreatedBy,
		CancelledBy:   b.CancelledBy,
	}
	if b.CancelledAt != nil {
		resp.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}
