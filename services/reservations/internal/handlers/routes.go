package handlers

import (
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/auth"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/go-chi/chi/v5"
)

// Mount registers the stall and reservation routes on r.
func (h *Handlers) Mount(r chi.Router, jwtSecret string, idem mw.IdempotencyStore) {
	r.Get("/stalls", h.ListStalls)
	r.With(mw.RequireJWT(jwtSecret, auth.CapReserveStalls)).Post("/stalls/reserve", h.ReserveStalls)

	r.Route("/reservations", func(r chi.Router) {
		r.With(
			mw.RequireJWT(jwtSecret, auth.CapReserveStalls),
			mw.IdempotencyMiddleware(idem, 24*time.Hour),
		).Post("/confirm", h.ConfirmReservation)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireJWT(jwtSecret, auth.CapManageReservations))
			r.Get("/stalls", h.ListReservedStalls)
			r.Delete("/admin/unreserve/{name}", h.AdminUnreserve)
			r.Post("/admin/assign", h.AdminAssign)
			r.Get("/", h.ListReservations)
			r.Get("/{id}", h.GetReservation)
		})
	})
}
