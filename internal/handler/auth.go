package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
	"github.com/sajuwooju/sajuwooju/internal/server/middleware"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

// CookieConfig describes the admin session cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
}

// AuthHandler serves login, logout and the current-admin endpoint.
type AuthHandler struct {
	auth   *service.AuthService
	cookie CookieConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, cookie CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginResponse struct {
	Success   bool               `json:"success"`
	Admin     model.AdminProfile `json:"admin"`
	Token     string             `json:"token"`
	TokenType string             `json:"token_type"`
	ExpiresIn int                `json:"expires_in"`
}

// Login handles POST /api/admin/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLogin):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, service.ErrDirectoryUnavailable):
			h.logger.Error("login directory failure", "error", err,
				"request_id", middleware.GetRequestID(r.Context()))
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			h.logger.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	maxAge := int(service.TokenTTL.Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    res.Token,
		Path:     h.cookie.Path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Info("admin logged in", "admin_id", res.Admin.ID, "role", res.Admin.Role)

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Admin:     res.Admin.Profile(),
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresIn: maxAge,
	})
}

// Logout handles POST /api/admin/auth/logout. It always clears the cookie.
// The token itself is only revoked when a revocation backend is configured;
// if that backend cannot record the revocation the response is 503 so the
// client knows the token is still live and can retry with it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	revokeErr := h.auth.Logout(r.Context(), middleware.ExtractToken(r, h.cookie.Name))

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	if revokeErr != nil {
		h.logger.Warn("token revocation failed", "error", revokeErr,
			"request_id", middleware.GetRequestID(r.Context()))
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable",
			map[string]interface{}{"revoked": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"revoked": h.auth.RevocationEnabled(),
	})
}

// Me handles GET /api/admin/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AdminFromContext(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"admin":       admin.Profile(),
		"permissions": rbac.PermissionsFor(admin.Role).List(),
	})
}
