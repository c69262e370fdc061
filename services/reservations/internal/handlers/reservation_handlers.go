package handlers

import (
	"net/http"

	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

// ConfirmReservation runs the reserve, QR and email steps as one unit
func (h *Handlers) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if !checkRequester(w, r, req.Email) {
		return
	}

	result, err := h.orchestrator.Confirm(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to confirm reservation")
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}
