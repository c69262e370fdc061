package handlers

import (
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Mount registers the auth routes under /auth.
func (h *Handlers) Mount(r chi.Router, jwtSecret string) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.LoginRateLimit).Post("/register", h.Register)
		r.With(h.LoginRateLimit).Post("/login", h.Login)
		r.With(mw.RequireJWT(jwtSecret, "")).Get("/protected", h.Protected)
	})
}
