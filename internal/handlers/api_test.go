package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/availability"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/booking"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/libs/auth"
)

const (
	testTenant = "salon-1"
	testSecret = "handler-test-secret"
)

var handlerNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubStore is an in-memory booking.Store for exercising the HTTP surface.
type stubStore struct {
	services  map[string]model.Service
	staff     map[string]model.Staff
	bans      map[string]bool
	schedules []model.Schedule
	timeOff   []model.TimeOff
	bookings  []model.Booking
	nextID    int
}

func newStubStore() *stubStore {
	s := &stubStore{
		services: map[string]model.Service{},
		staff:    map[string]model.Staff{},
		bans:     map[string]bool{},
	}
	s.services["haircut"] = model.Service{
		ID: "haircut", TenantID: testTenant, Name: "Haircut", DurationMinutes: 45, IsActive: true,
	}
	s.staff["maria"] = model.Staff{ID: "maria", TenantID: testTenant, Name: "Maria", IsActive: true}
	for wd := 1; wd <= 5; wd++ {
		s.schedules = append(s.schedules, model.Schedule{
			StaffID: "maria", Weekday: wd, StartMinute: 9 * 60, EndMinute: 17 * 60,
		})
	}
	return s
}

func (s *stubStore) GetService(_ context.Context, tenantID, serviceID string) (model.Service, bool, error) {
	svc, ok := s.services[serviceID]
	if !ok || svc.TenantID != tenantID {
		return model.Service{}, false, nil
	}
	return svc, true, nil
}

func (s *stubStore) GetStaff(_ context.Context, tenantID, staffID string) (model.Staff, bool, error) {
	st, ok := s.staff[staffID]
	if !ok || st.TenantID != tenantID {
		return model.Staff{}, false, nil
	}
	return st, true, nil
}

func (s *stubStore) IsCustomerBanned(_ context.Context, tenantID, email string) (bool, error) {
	return s.bans[tenantID+"/"+email], nil
}

func (s *stubStore) ListSchedules(_ context.Context, _, staffID string, weekday time.Weekday) ([]model.Schedule, error) {
	var out []model.Schedule
	for _, sc := range s.schedules {
		if sc.StaffID == staffID && sc.Weekday == int(weekday) {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *stubStore) HasTimeOff(_ context.Context, _, staffID string, date time.Time) (bool, error) {
	for _, t := range s.timeOff {
		if t.StaffID == staffID && availability.CoversDate(t.DateFrom, t.DateTo, date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) ListConfirmedOverlapping(_ context.Context, tenantID, staffID string, start, end time.Time) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.TenantID == tenantID && b.StaffID == staffID && b.Status == model.StatusConfirmed &&
			b.StartAt.Before(end) && b.EndAt.After(start) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	overlapping, _ := s.ListConfirmedOverlapping(ctx, b.TenantID, b.StaffID, b.StartAt, b.EndAt)
	if len(overlapping) > 0 {
		return booking.ErrSlotTaken
	}
	s.nextID++
	b.ID = fmt.Sprintf("bk-%d", s.nextID)
	b.CreatedAt = time.Now()
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *stubStore) GetBooking(_ context.Context, tenantID, bookingID string) (model.Booking, bool, error) {
	for _, b := range s.bookings {
		if b.TenantID == tenantID && b.ID == bookingID {
			return b, true, nil
		}
	}
	return model.Booking{}, false, nil
}

func (s *stubStore) CancelBooking(_ context.Context, tenantID, bookingID, cancelledBy string) (model.Booking, bool, error) {
	for i, b := range s.bookings {
		if b.TenantID == tenantID && b.ID == bookingID {
			if b.Status != model.StatusConfirmed {
				return model.Booking{}, false, nil
			}
			now := time.Now()
			s.bookings[i].Status = model.StatusCancelled
			s.bookings[i].CancelledBy = cancelledBy
			s.bookings[i].CancelledAt = &now
			return s.bookings[i], true, nil
		}
	}
	return model.Booking{}, false, nil
}

func (s *stubStore) ListCustomerBookings(_ context.Context, tenantID, email string, from time.Time) ([]model.BookingDetail, error) {
	var out []model.BookingDetail
	for _, b := range s.bookings {
		if b.TenantID == tenantID && b.CustomerEmail == email && b.Status == model.StatusConfirmed && b.StartAt.After(from) {
			out = append(out, model.BookingDetail{
				Booking:                b,
				ServiceName:            "Haircut",
				ServiceDurationMinutes: 45,
				StaffName:              "Maria",
			})
		}
	}
	return out, nil
}

func (s *stubStore) ListBookings(_ context.Context, tenantID string, _ booking.ListFilter) ([]model.Booking, int, error) {
	var out []model.Booking
	for _, b := range s.bookings {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func newTestAPI(t *testing.T) (*http.ServeMux, *stubStore) {
	t.Helper()
	store := newStubStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	core := booking.NewService(store, logger).WithClock(func() time.Time { return handlerNow })

	mux := http.NewServeMux()
	RegisterRoutes(mux, NewBookingHandler(core, logger), NewAdminHandler(core, logger), testSecret)
	return mux, store
}

func signToken(t *testing.T, email, role, tenant string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.Claims{
		Sub:      email,
		TenantID: tenant,
		Role:     role,
		Iat:      time.Now().Unix(),
		Exp:      time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(TenantIDHeader, testTenant)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateBooking(t *testing.T) {
	mux, _ := newTestAPI(t)
	token := signToken(t, "anna@example.com", "customer", testTenant)

	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"2026-03-04T10:00:00Z"}`
	rec := doRequest(t, mux, http.MethodPost, "/api/bookings", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body)
	}

	var resp bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Status != "CONFIRMED" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.End != "2026-03-04T10:45:00Z" {
		t.Fatalf("end = %s, want service duration applied", resp.End)
	}

	// Same slot again surfaces as a conflict.
	rec = doRequest(t, mux, http.MethodPost, "/api/bookings", token, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d, want 409", rec.Code)
	}
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	mux, _ := newTestAPI(t)
	token := signToken(t, "anna@example.com", "customer", testTenant)

	for name, body := range map[string]string{
		"malformed json": `{"serviceId":`,
		"bad start":      `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"tomorrow"}`,
		"missing staff":  `{"serviceId":"haircut","customerEmail":"anna@example.com","start":"2026-03-04T10:00:00Z"}`,
	} {
		rec := doRequest(t, mux, http.MethodPost, "/api/bookings", token, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/bookings", "", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/bookings", "not.a.token", `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestTenantResolution(t *testing.T) {
	mux, _ := newTestAPI(t)
	token := signToken(t, "anna@example.com", "customer", testTenant)
	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"2026-03-04T10:00:00Z"}`

	// No header: the token's tenant applies.
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("no header: status = %d, want 201; body %s", rec.Code, rec.Body)
	}

	// Header for a different tenant than the token is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(TenantIDHeader, "salon-2")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("tenant mismatch: status = %d, want 400", rec.Code)
	}
}

func TestCancelBooking(t *testing.T) {
	mux, store := newTestAPI(t)
	anna := signToken(t, "anna@example.com", "customer", testTenant)
	ben := signToken(t, "ben@example.com", "customer", testTenant)

	// Wednesday is three days out, well past the cutoff.
	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"2026-03-04T10:00:00Z"}`
	rec := doRequest(t, mux, http.MethodPost, "/api/bookings", anna, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup create: status = %d, body %s", rec.Code, rec.Body)
	}
	var created bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/bookings/"+created.ID, ben, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign cancel: status = %d, want 403", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/bookings/missing", anna, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing booking: status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/bookings/"+created.ID, anna, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("own cancel: status = %d, want 204; body %s", rec.Code, rec.Body)
	}
	if got := store.bookings[0].Status; got != model.StatusCancelled {
		t.Fatalf("stored status = %s, want CANCELLED", got)
	}
}

func TestCancelInsideCutoff(t *testing.T) {
	mux, _ := newTestAPI(t)
	anna := signToken(t, "anna@example.com", "customer", testTenant)
	admin := signToken(t, "owner@salon.example", "admin", testTenant)

	// Monday 10:00 is 22 hours away from the fixed clock.
	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"2026-03-02T10:00:00Z"}`
	rec := doRequest(t, mux, http.MethodPost, "/api/bookings", anna, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("setup create: status = %d, body %s", rec.Code, rec.Body)
	}
	var created bookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/bookings/"+created.ID, anna, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("customer inside cutoff: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/admin/bookings/"+created.ID, admin, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin inside cutoff: status = %d, want 204; body %s", rec.Code, rec.Body)
	}
}

func TestListMine(t *testing.T) {
	mux, _ := newTestAPI(t)
	anna := signToken(t, "anna@example.com", "customer", testTenant)
	ben := signToken(t, "ben@example.com", "customer", testTenant)

	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"anna@example.com","start":"2026-03-04T10:00:00Z"}`
	if rec := doRequest(t, mux, http.MethodPost, "/api/bookings", anna, body); rec.Code != http.StatusCreated {
		t.Fatalf("setup create: status = %d", rec.Code)
	}

	rec := doRequest(t, mux, http.MethodGet, "/api/bookings/me", anna, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var mine []myBookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(mine) != 1 || mine[0].ServiceName != "Haircut" || mine[0].StaffName != "Maria" {
		t.Fatalf("unexpected listing %+v", mine)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/bookings/me", ben, "")
	var other []myBookingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &other); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("ben sees %d bookings, want 0", len(other))
	}
}

func TestAdminEndpoints(t *testing.T) {
	mux, _ := newTestAPI(t)
	customer := signToken(t, "anna@example.com", "customer", testTenant)
	admin := signToken(t, "owner@salon.example", "admin", testTenant)

	rec := doRequest(t, mux, http.MethodGet, "/api/admin/bookings", customer, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer on admin route: status = %d, want 403", rec.Code)
	}

	// Admin can book on behalf of anyone.
	body := `{"serviceId":"haircut","staffId":"maria","customerEmail":"walkin@example.com","start":"2026-03-04T10:00:00Z"}`
	rec = doRequest(t, mux, http.MethodPost, "/api/admin/bookings", admin, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/admin/bookings?page=1&limit=10", admin, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: status = %d", rec.Code)
	}
	var listing adminListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Bookings) != 1 || listing.Pagination.Total != 1 || listing.Pagination.TotalPages != 1 {
		t.Fatalf("unexpected listing %+v", listing)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/admin/bookings?from=noon", admin, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad from filter: status = %d, want 400", rec.Code)
	}
}

func TestSlots(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/availability?staffId=maria&serviceId=haircut&date=2026-03-02", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var resp slotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) == 0 || resp.Slots[0] != "2026-03-02T09:00:00Z" {
		t.Fatalf("unexpected slots %v", resp.Slots)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/availability?serviceId=haircut&date=2026-03-02", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing staffId: status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/availability?staffId=maria&serviceId=haircut&date=someday", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d, want 400", rec.Code)
	}
}
