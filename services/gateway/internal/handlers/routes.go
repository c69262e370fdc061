package handlers

import "github.com/go-chi/chi/v5"

func (h *Handlers) Mount(r chi.Router) {
	r.HandleFunc("/auth/*", h.Auth)

	r.HandleFunc("/stalls", h.Reservations)
	r.HandleFunc("/stalls/*", h.Reservations)
	r.HandleFunc("/reservations/*", h.Reservations)
}
