package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	mw "github.com/diagnosis/bookfair-stalls/pkg/middleware"
	"github.com/diagnosis/bookfair-stalls/pkg/response"
	"github.com/diagnosis/bookfair-stalls/services/auth/internal/domain"
)

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(w, err.Error())
		return
	case errors.Is(err, domain.ErrUserExists):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeEmailExists)
		return
	case errors.Is(err, domain.ErrAdminSignupDisabled):
		response.Forbidden(w, err.Error())
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Registration failed", "error", err)
		response.InternalError(w, "Registration failed")
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    user.ToUserInfo(),
	})
}

// Login handles user authentication
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	switch {
	case errors.Is(err, domain.ErrValidation):
		response.BadRequest(w, err.Error())
		return
	case errors.Is(err, domain.ErrUserNotFound):
		response.WriteError(w, http.StatusNotFound, "No account exists for this email", response.CodeUserNotFound)
		return
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.WriteError(w, http.StatusUnauthorized, "Incorrect password", response.CodeInvalidCredentials)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Login failed", "error", err)
		response.InternalError(w, "Login failed")
		return
	}

	response.WriteJSON(w, http.StatusOK, resp)
}

// Protected echoes the caller's token claims
func (h *Handlers) Protected(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "Missing token")
		return
	}

	info := domain.UserInfo{
		ID:    claims.Sub,
		Email: claims.Email,
		Role:  claims.Role,
	}
	// Token claims are authoritative; the stored profile only adds the name.
	if user, err := h.authService.GetUser(r.Context(), claims.Sub); err == nil {
		info.Name = user.Name
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		logger.WarnContext(r.Context(), "Profile lookup failed", "error", err)
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Token is valid",
		"user":    info,
	})
}
