package handlers

import (
	"net/http"
	"net/url"

	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ListReservedStalls handles GET /reservations/stalls
func (h *Handlers) ListReservedStalls(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.reservations.ListReserved(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list reserved stalls")
		return
	}
	response.WriteJSON(w, http.StatusOK, stalls)
}

// AdminUnreserve releases every stall held under a publisher name
func (h *Handlers) AdminUnreserve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}

	n, err := h.reservations.Unreserve(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err, "Failed to unreserve stalls")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Stalls unreserved",
		"released": n,
	})
}

// AdminAssign overwrites the holder of the given stalls
func (h *Handlers) AdminAssign(w http.ResponseWriter, r *http.Request) {
	var req domain.ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	result, err := h.reservations.Assign(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to assign stalls")
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	list, err := h.orchestrator.ListReservations(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list reservations")
		return
	}
	response.WriteJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.orchestrator.GetReservation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get reservation")
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}
