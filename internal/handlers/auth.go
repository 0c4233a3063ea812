package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/internal/model"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/libs/auth"
	"github.com/carosellagiuliano-max/schnittwerk-your-style-11-sub001/libs/httpx"
)

type ctxKey int

const (
	ctxKeyActor ctxKey = iota
	ctxKeyTokenTenant
)

// ActorFromContext returns the authenticated principal stored by RequireAuth.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(model.Actor)
	return a, ok
}

func tokenTenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyTokenTenant).(string)
	return v
}

// RequireAuth verifies the Bearer token and stores the acting identity in
// the request context. Role claims "admin" and "owner" both map to the
// admin identity; everything else is a customer.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(token), secret)
			if err != nil {
				writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
				return
			}

			var actor model.Actor
			switch strings.ToLower(claims.Role) {
			case "admin", "owner":
				actor = model.Admin(claims.Sub)
			default:
				actor = model.Customer(claims.Sub)
			}

			ctx := context.WithValue(r.Context(), ctxKeyActor, actor)
			ctx = context.WithValue(ctx, ctxKeyTokenTenant, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
