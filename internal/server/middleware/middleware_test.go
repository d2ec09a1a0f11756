package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGate scripts Authenticate results and applies the real role table in
// Permit.
type fakeGate struct {
	admin *model.Admin
	err   error
	seen  string
}

func (g *fakeGate) Authenticate(_ context.Context, token string) (*model.Admin, error) {
	g.seen = token
	if g.err != nil {
		return nil, g.err
	}
	return g.admin, nil
}

func (g *fakeGate) Permit(admin *model.Admin, perm model.Permission) error {
	if admin.Role == model.RoleViewer && perm != model.PermRead {
		return service.ErrForbidden
	}
	return nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	// UUID v7 format check: 36 chars with dashes
	if respID := rr.Header().Get("X-Request-ID"); len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetRequestID(r.Context()); id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if respID := rr.Header().Get("X-Request-ID"); respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestRequestIDReplacesUnsafeClientID(t *testing.T) {
	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("x", maxRequestIDLen+1)} {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", bad)
		rr := httptest.NewRecorder()
		RequestID(okHandler()).ServeHTTP(rr, req)

		if got := rr.Header().Get("X-Request-ID"); got == bad || len(got) != 36 {
			t.Errorf("client ID %q should be replaced, got %q", bad, got)
		}
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Token extraction
// ---------------------------------------------------------------------------

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{"bearer only", "Bearer header-token", "", "header-token"},
		{"cookie only", "", "cookie-token", "cookie-token"},
		{"bearer wins over cookie", "Bearer header-token", "cookie-token", "header-token"},
		{"lowercase scheme", "bearer header-token", "", "header-token"},
		{"basic falls back to cookie", "Basic dXNlcjpwYXNz", "cookie-token", "cookie-token"},
		{"empty bearer falls back", "Bearer ", "cookie-token", "cookie-token"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/admin/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "admin_token", Value: tt.cookie})
			}
			if got := ExtractToken(req, "admin_token"); got != tt.want {
				t.Errorf("ExtractToken = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Authenticate / RequirePermission
// ---------------------------------------------------------------------------

func TestAuthenticateAttachesAdmin(t *testing.T) {
	admin := &model.Admin{ID: "a1", Role: model.RoleAdmin, IsActive: true}
	gate := &fakeGate{admin: admin}

	handler := Authenticate(gate, "admin_token", discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := AdminFromContext(r.Context()); got != admin {
			t.Errorf("expected admin in context, got %+v", got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/admin/auth/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if gate.seen != "tok" {
		t.Errorf("gate saw token %q, want tok", gate.seen)
	}
}

func TestAuthenticateErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"rejection", &service.Rejection{Reason: service.ReasonBadCredential}, http.StatusUnauthorized, "Not authenticated"},
		{"inactive", &service.Rejection{Reason: service.ReasonAccountUnavailable, Cause: service.ErrAccountUnavailable}, http.StatusUnauthorized, "Not authenticated"},
		{"transient", fmt.Errorf("%w: timeout", service.ErrDirectoryUnavailable), http.StatusServiceUnavailable, "Service temporarily unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("inner handler should not be called")
			})

			handler := Authenticate(&fakeGate{err: tt.err}, "admin_token", logger)(inner)
			req := httptest.NewRequest("GET", "/api/admin/auth/me", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.msg) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tt.msg)
			}
			// The internal reason never reaches the client.
			for _, reason := range []string{"bad_credential", "account_unavailable", "inactive"} {
				if strings.Contains(rr.Body.String(), reason) {
					t.Errorf("response leaks reason %q: %s", reason, rr.Body.String())
				}
			}
			if logs.Len() == 0 {
				t.Error("expected the gate outcome to be logged")
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	gate := &fakeGate{}
	handler := RequirePermission(gate, model.PermWrite, discardLogger())(okHandler())

	tests := []struct {
		name   string
		admin  *model.Admin
		status int
	}{
		{"admin may write", &model.Admin{ID: "a1", Role: model.RoleAdmin}, http.StatusOK},
		{"viewer may not write", &model.Admin{ID: "v1", Role: model.RoleViewer}, http.StatusForbidden},
		{"no admin in context", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/admin/notices", nil)
			if tt.admin != nil {
				req = req.WithContext(WithAdmin(req.Context(), tt.admin))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestAdminFromContextWithoutValue(t *testing.T) {
	if got := AdminFromContext(context.Background()); got != nil {
		t.Error("expected nil admin from bare context")
	}
}

// ---------------------------------------------------------------------------
// Rate limit / security headers / logging
// ---------------------------------------------------------------------------

func TestLoginRateLimit(t *testing.T) {
	handler := LoginRateLimit(2)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/admin/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("first two attempts should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third attempt should be limited, got %d", codes[2])
	}
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(false)(okHandler())
	req := httptest.NewRequest("GET", "/api/admin/auth/me", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should be off outside production")
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})))

	req := httptest.NewRequest("GET", "/teapot?token=secret", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	out := logs.String()
	if !strings.Contains(out, "status=418") {
		t.Errorf("expected status in log, got %q", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("expected 4xx to log at WARN, got %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("query string must not be logged: %q", out)
	}
}
