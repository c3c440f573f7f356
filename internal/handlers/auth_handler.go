package handlers

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/service"
)

// AuthHandler handles login and token verification
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyResponse describes the caller behind a valid token
type VerifyResponse struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	RoleID      int64    `json:"role_id"`
	Permissions []string `json:"permissions"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to decode login request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		writeServiceError(w, h.logger, err, "login failed", "username", req.Username)
		return
	}

	h.logger.Info("admin logged in", "user_id", result.User.ID)
	WriteJSON(w, http.StatusOK, result, h.logger)
}

// Verify handles GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, VerifyResponse{
		UserID:      c.UserID,
		Username:    c.Username,
		RoleID:      c.RoleID,
		Permissions: c.Caps.Tokens(),
	}, h.logger)
}
