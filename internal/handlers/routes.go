package handlers

import "net/http"

// RegisterRoutes mounts the booking API on mux. Availability is public;
// everything else requires a verified bearer token.
func RegisterRoutes(mux *http.ServeMux, bh *BookingHandler, ah *AdminHandler, jwtSecret string) {
	authn := RequireAuth(jwtSecret)

	mux.Handle("GET /api/availability", http.HandlerFunc(bh.Slots))

	mux.Handle("POST /api/bookings", authn(http.HandlerFunc(bh.Create)))
	mux.Handle("GET /api/bookings/me", authn(http.HandlerFunc(bh.ListMine)))
	mux.Handle("DELETE /api/bookings/{id}", authn(http.HandlerFunc(bh.Cancel)))

	mux.Handle("GET /api/admin/bookings", authn(http.HandlerFunc(ah.List)))
	mux.Handle("POST /api/admin/bookings", authn(http.HandlerFunc(ah.Create)))
	mux.Handle("DELETE /api/admin/bookings/{id}", authn(http.HandlerFunc(ah.Cancel)))
}
