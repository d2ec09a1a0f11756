package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/metrics"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
)

// MinPasswordLength is the shortest password accepted for admin accounts.
const MinPasswordLength = 8

// Denylist is the optional token revocation store.
type Denylist interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithDenylist enables token revocation on logout.
func WithDenylist(d Denylist) Option {
	return func(s *AuthService) { s.denylist = d }
}

// WithLookupTimeout overrides DefaultLookupTimeout.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithBreaker overrides DefaultBreakerSettings.
func WithBreaker(bs BreakerSettings) Option {
	return func(s *AuthService) { s.breakerSettings = bs }
}

// WithLogger sets the logger for breaker transitions and login bookkeeping.
func WithLogger(l *slog.Logger) Option {
	return func(s *AuthService) { s.logger = l }
}

// AuthService implements login and the authentication and authorization
// gates for the admin API. It is safe for concurrent use; each call does
// its own directory lookup and shares nothing mutable across requests.
type AuthService struct {
	dir             Directory
	codec           *TokenCodec
	denylist        Denylist
	lookupTimeout   time.Duration
	breakerSettings BreakerSettings
	breaker         *gobreaker.CircuitBreaker[*model.Admin]
	logger          *slog.Logger
}

// NewAuthService builds the gates over a directory and a token codec.
func NewAuthService(dir Directory, codec *TokenCodec, opts ...Option) *AuthService {
	s := &AuthService{
		dir:             dir,
		codec:           codec,
		lookupTimeout:   DefaultLookupTimeout,
		breakerSettings: DefaultBreakerSettings(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = newDirectoryBreaker(s.breakerSettings, s.logger)
	return s
}

// RevocationEnabled reports whether logout revokes tokens.
func (s *AuthService) RevocationEnabled() bool {
	return s.denylist != nil
}

// ---------------------------------------------------------------------------
// Authentication gate
// ---------------------------------------------------------------------------

// Authenticate verifies the credential and returns the admin's current
// directory record. The role and active flag come from the directory, never
// from the token. Rejections match ErrUnauthenticated; directory failures
// match ErrDirectoryUnavailable.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Admin, error) {
	if token == "" {
		return nil, s.reject(ReasonMissingCredential, nil)
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, s.reject(ReasonBadCredential, err)
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			metrics.RecordAuthentication("directory_unavailable")
			return nil, fmt.Errorf("%w: revocation check: %w", ErrDirectoryUnavailable, err)
		}
		if revoked {
			return nil, s.reject(ReasonRevoked, nil)
		}
	}

	admin, err := s.FindActive(ctx, claims.AdminID())
	if errors.Is(err, ErrAccountUnavailable) {
		return nil, s.reject(ReasonAccountUnavailable, err)
	}
	if err != nil {
		metrics.RecordAuthentication("directory_unavailable")
		return nil, err
	}

	metrics.RecordAuthentication("authenticated")
	return admin, nil
}

func (s *AuthService) reject(reason Reason, cause error) error {
	metrics.RecordAuthentication(string(reason))
	return &Rejection{Reason: reason, Cause: cause}
}

// ---------------------------------------------------------------------------
// Authorization gate
// ---------------------------------------------------------------------------

// Authorize authenticates token and then requires perm. Authentication
// failures propagate unchanged; a missing permission matches ErrForbidden.
// The returned admin is the directory record, for audit attribution.
func (s *AuthService) Authorize(ctx context.Context, token string, perm model.Permission) (*model.Admin, error) {
	admin, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.Permit(admin, perm); err != nil {
		return nil, err
	}
	return admin, nil
}

// Permit checks perm against the permission set of the admin's role.
// Unknown roles hold no permissions.
func (s *AuthService) Permit(admin *model.Admin, perm model.Permission) error {
	err := permit(admin, perm)
	metrics.RecordAuthorization(string(perm), err == nil)
	return err
}

// Evaluate answers what the gates would decide for adminID and perm right
// now, without a credential: the directory half (ErrAccountUnavailable or
// ErrDirectoryUnavailable) followed by the permission half (ErrForbidden).
// Operator tooling uses it; it is not counted in the authorization metrics.
func (s *AuthService) Evaluate(ctx context.Context, adminID string, perm model.Permission) (*model.Admin, error) {
	admin, err := s.FindActive(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if err := permit(admin, perm); err != nil {
		return admin, err
	}
	return admin, nil
}

func permit(admin *model.Admin, perm model.Permission) error {
	if !rbac.PermissionsFor(admin.Role).Has(perm) {
		return fmt.Errorf("%w: role %q lacks %q", ErrForbidden, admin.Role, perm)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Login / logout
// ---------------------------------------------------------------------------

// LoginResult is a successful login.
type LoginResult struct {
	Admin  *model.Admin
	Token  string
	Claims *Claims
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming burns one bcrypt comparison so that unknown emails take as
// long as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sajuwooju-timing-equalizer"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Login checks email and password and issues a credential. Unknown email,
// wrong password and inactive account all return ErrInvalidLogin.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = model.NormalizeEmail(email)

	admin, err := s.lookup(ctx, "get_admin_by_email", func(ctx context.Context) (*model.Admin, error) {
		return s.dir.GetAdminByEmail(ctx, email)
	})
	if errors.Is(err, config.ErrNotFound) {
		equalizeTiming(password)
		metrics.RecordLogin("invalid")
		return nil, ErrInvalidLogin
	}
	if err != nil {
		metrics.RecordLogin("unavailable")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		metrics.RecordLogin("invalid")
		return nil, ErrInvalidLogin
	}
	if !admin.IsActive {
		metrics.RecordLogin("invalid")
		return nil, ErrInvalidLogin
	}

	token, claims, err := s.codec.Issue(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return nil, err
	}

	updateCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	err = s.dir.UpdateAdminLastLogin(updateCtx, admin.ID)
	cancel()
	if err != nil {
		s.logger.Warn("failed to record last login", "admin_id", admin.ID, "error", err)
	}

	metrics.RecordLogin("success")
	return &LoginResult{Admin: admin, Token: token, Claims: claims}, nil
}

// Logout revokes token when revocation is enabled. Without a denylist it
// is a no-op and the token stays valid until it expires. Invalid tokens
// are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.denylist == nil || token == "" {
		return nil
	}
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("%w: revoke token: %w", ErrDirectoryUnavailable, err)
	}
	return nil
}

// HashPassword bcrypt-hashes a new admin password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
