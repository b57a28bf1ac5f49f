package main

import (
	"net/http"

	"github.com/siteulation/backend/internal/auth"
	"github.com/siteulation/backend/internal/handlers"
	"github.com/siteulation/backend/internal/middleware"
)

// RegisterRoutes mounts the /api surface on mux.
// Public: auth, cart browsing, the bundled preview.
// Authenticated: generation, own carts, credits, account.
// Admin: moderation, bans, cart deletion.
func RegisterRoutes(
	mux *http.ServeMux,
	authHandler *auth.Handler,
	generateHandler *handlers.GenerateHandler,
	cartHandler *handlers.CartHandler,
	creditHandler *handlers.CreditHandler,
	adminHandler *handlers.AdminHandler,
	requireAuth func(http.Handler) http.Handler,
) {
	admin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(h))
	}

	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/signin", authHandler.Signin)
	mux.Handle("GET /api/user", requireAuth(http.HandlerFunc(handlers.Me)))

	mux.Handle("POST /api/generate", requireAuth(http.HandlerFunc(generateHandler.Generate)))

	mux.HandleFunc("GET /api/carts", cartHandler.List)
	mux.Handle("GET /api/carts/mine", requireAuth(http.HandlerFunc(cartHandler.Mine)))
	mux.HandleFunc("GET /api/carts/{id}", cartHandler.Get)
	mux.HandleFunc("GET /api/carts/{id}/bundle", cartHandler.Bundle)
	mux.HandleFunc("POST /api/carts/{id}/view", cartHandler.View)
	mux.Handle("PATCH /api/carts/{id}", requireAuth(http.HandlerFunc(cartHandler.Update)))
	mux.Handle("DELETE /api/carts/{id}", admin(cartHandler.Delete))

	mux.Handle("POST /api/credits/request", requireAuth(http.HandlerFunc(creditHandler.Submit)))
	mux.Handle("GET /api/credits/history", requireAuth(http.HandlerFunc(creditHandler.History)))

	mux.Handle("GET /api/admin/credit-requests", admin(adminHandler.ListRequests))
	mux.Handle("POST /api/admin/credit-requests/{id}/approve", admin(adminHandler.Approve))
	mux.Handle("POST /api/admin/credit-requests/{id}/deny", admin(adminHandler.Deny))
	mux.Handle("POST /api/admin/ban", admin(adminHandler.Ban))
}
