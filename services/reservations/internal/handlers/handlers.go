package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diagnosis/bookfair-stalls/pkg/auth"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/service"
)

type Handlers struct {
	reservations service.ReservationService
	orchestrator service.Orchestrator
}

func New(reservations service.ReservationService, orchestrator service.Orchestrator) *Handlers {
	return &Handlers{
		reservations: reservations,
		orchestrator: orchestrator,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

// checkRequester stops publishers from acting for another email. Admins may.
func checkRequester(w http.ResponseWriter, r *http.Request, email string) bool {
	claims := mw.Claims(r)
	if claims == nil || claims.Role == auth.RoleAdmin || strings.TrimSpace(email) == "" {
		return true
	}
	if !strings.EqualFold(strings.TrimSpace(email), claims.Email) {
		response.Forbidden(w, "Cannot reserve stalls for another account")
		return false
	}
	return true
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.WriteErrorWithDetails(w, http.StatusConflict, "Some stalls are already reserved",
			response.CodeConflict, map[string][]string{"stalls": conflict.Stalls})
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrReservationExists):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrQRIssuance), errors.Is(err, domain.ErrNotification):
		logger.ErrorContext(r.Context(), fallback, "error", err)
		response.BadGateway(w, err.Error())
	default:
		logger.ErrorContext(r.Context(), fallback, "error", err)
		response.InternalError(w, fallback)
	}
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
