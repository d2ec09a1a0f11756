package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

type contextKeyAuth string

const (
	// AdminKey is the context key for the authenticated admin record.
	AdminKey contextKeyAuth = "auth_admin"
)

// Gate is the subset of service.AuthService the middleware needs.
type Gate interface {
	Authenticate(ctx context.Context, token string) (*model.Admin, error)
	Permit(admin *model.Admin, perm model.Permission) error
}

// ExtractToken returns the credential presented with the request: the
// Authorization bearer token when present, otherwise the admin cookie.
// It returns "" when neither carries a value.
func ExtractToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

// Authenticate returns an HTTP middleware that runs the authentication gate
// on every request. On success the admin's current directory record is
// attached to the request context. Rejections get a 401 with a fixed
// message; the real reason only goes to the log. Directory failures get a
// 503 so clients can tell them apart from a decision.
func Authenticate(gate Gate, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := gate.Authenticate(r.Context(), ExtractToken(r, cookieName))
			if err != nil {
				writeGateError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), admin)))
		})
	}
}

// RequirePermission returns an HTTP middleware that enforces perm for the
// admin attached by Authenticate. It must be used after Authenticate in the
// middleware chain.
func RequirePermission(gate Gate, perm model.Permission, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := AdminFromContext(r.Context())
			if admin == nil {
				writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if err := gate.Permit(admin, perm); err != nil {
				logger.Warn("admin authorization denied",
					"admin_id", admin.ID,
					"role", admin.Role,
					"permission", perm,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				writeAuthError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAdmin returns a copy of ctx carrying admin.
func WithAdmin(ctx context.Context, admin *model.Admin) context.Context {
	return context.WithValue(ctx, AdminKey, admin)
}

// AdminFromContext extracts the authenticated admin from the context.
// Returns nil if no admin is present (i.e., unauthenticated request).
func AdminFromContext(ctx context.Context) *model.Admin {
	if a, ok := ctx.Value(AdminKey).(*model.Admin); ok {
		return a
	}
	return nil
}

func writeGateError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		reason, _ := service.RejectionReason(err)
		logger.Warn("admin authentication rejected",
			"reason", reason,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
		writeAuthError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, service.ErrDirectoryUnavailable):
		logger.Error("admin directory unavailable",
			"error", err,
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
		)
		w.Header().Set("Retry-After", "5")
		writeAuthError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		logger.Error("admin authentication failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeAuthError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid import cycle with handler package
	w.Write([]byte(`{"error":{"code":` + httpStatusString(status) + `,"message":"` + message + `"}}`))
}

func httpStatusString(code int) string {
	switch code {
	case 401:
		return "401"
	case 403:
		return "403"
	case 429:
		return "429"
	case 503:
		return "503"
	default:
		return "500"
	}
}
