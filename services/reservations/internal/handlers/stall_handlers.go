package handlers

import (
	"net/http"

	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

// ListStalls returns every stall with its reservation state
func (h *Handlers) ListStalls(w http.ResponseWriter, r *http.Request) {
	stalls, err := h.reservations.ListStalls(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list stalls")
		return
	}
	response.WriteJSON(w, http.StatusOK, stalls)
}

// ReserveStalls reserves stalls without issuing a QR code or email
func (h *Handlers) ReserveStalls(w http.ResponseWriter, r *http.Request) {
	var req domain.ReserveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if !checkRequester(w, r, req.Email) {
		return
	}

	result, err := h.reservations.Reserve(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to reserve stalls")
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
