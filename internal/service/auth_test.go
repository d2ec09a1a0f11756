package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testSecret)
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func newTestAuth(t *testing.T, opts ...Option) (*AuthService, *config.Store) {
	t.Helper()
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewAuthService(store, newTestCodec(t), opts...), store
}

func seedAdmin(t *testing.T, store *config.Store, email, password string, role model.Role, active bool) *model.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admin := &model.Admin{
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test",
		Role:         role,
		IsActive:     true,
	}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if !active {
		if err := store.SetAdminActive(context.Background(), admin.ID, false); err != nil {
			t.Fatalf("SetAdminActive: %v", err)
		}
		admin.IsActive = false
	}
	return admin
}

func issueFor(t *testing.T, s *AuthService, admin *model.Admin) string {
	t.Helper()
	token, _, err := s.codec.Issue(admin.ID, admin.Email, admin.Role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Fatalf("rejection must not match ErrForbidden: %v", err)
	}
	got, ok := RejectionReason(err)
	if !ok || got != want {
		t.Fatalf("reason: got %q (ok=%v), want %q", got, ok, want)
	}
}

// fakeDirectory is a Directory whose failures can be scripted.
type fakeDirectory struct {
	mu     sync.Mutex
	admins map[string]*model.Admin
	err    error
	block  bool
	calls  int

	// stallLastLogin makes UpdateAdminLastLogin hang until its context ends.
	stallLastLogin bool
	lastLoginErr   error
}

func (f *fakeDirectory) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	f.mu.Lock()
	f.calls++
	block, err := f.block, f.err
	a, ok := f.admins[id]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, config.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeDirectory) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, config.ErrNotFound
}

func (f *fakeDirectory) UpdateAdminLastLogin(ctx context.Context, _ string) error {
	f.mu.Lock()
	stall := f.stallLastLogin
	f.mu.Unlock()
	if !stall {
		return nil
	}
	<-ctx.Done()
	f.mu.Lock()
	f.lastLoginErr = ctx.Err()
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeDirectory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDenylist is an in-process Denylist.
type fakeDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func (d *fakeDenylist) Revoke(_ context.Context, jti string, exp time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.revoked[jti] = exp
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[jti]
	return ok, nil
}

// ---------------------------------------------------------------------------
// Authentication gate
// ---------------------------------------------------------------------------

func TestAuthenticateMissingCredential(t *testing.T) {
	auth, _ := newTestAuth(t)
	_, err := auth.Authenticate(context.Background(), "")
	assertReason(t, err, ReasonMissingCredential)
}

func TestAuthenticateBadCredential(t *testing.T) {
	auth, _ := newTestAuth(t)
	_, err := auth.Authenticate(context.Background(), "not-a-jwt")
	assertReason(t, err, ReasonBadCredential)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected wrapped ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateReturnsDirectoryRecord(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	admin := seedAdmin(t, store, "editor@sajuwooju.com", "password123", model.RoleViewer, true)
	token := issueFor(t, auth, admin)

	// Promote after issuance: the gate must see the new role.
	if err := store.SetAdminRole(ctx, admin.ID, model.RoleAdmin); err != nil {
		t.Fatalf("SetAdminRole: %v", err)
	}

	got, err := auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != admin.ID {
		t.Errorf("ID: got %q, want %q", got.ID, admin.ID)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("Role: got %q, want admin (directory value)", got.Role)
	}
}

func TestAuthenticateDeactivatedAfterIssuance(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	admin := seedAdmin(t, store, "gone@sajuwooju.com", "password123", model.RoleSuperAdmin, true)
	token := issueFor(t, auth, admin)

	if _, err := auth.Authenticate(ctx, token); err != nil {
		t.Fatalf("Authenticate before deactivation: %v", err)
	}
	if err := store.SetAdminActive(ctx, admin.ID, false); err != nil {
		t.Fatalf("SetAdminActive: %v", err)
	}

	_, err := auth.Authenticate(ctx, token)
	assertReason(t, err, ReasonAccountUnavailable)
	if !errors.Is(err, ErrAccountUnavailable) {
		t.Errorf("expected wrapped ErrAccountUnavailable, got %v", err)
	}
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	auth, _ := newTestAuth(t)
	token, _, _ := auth.codec.Issue("no-such-admin", "x@sajuwooju.com", model.RoleSuperAdmin)

	_, err := auth.Authenticate(context.Background(), token)
	assertReason(t, err, ReasonAccountUnavailable)
}

func TestAuthenticateDirectoryFailureIsTransient(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	auth := NewAuthService(dir, newTestCodec(t))
	token, _, _ := auth.codec.Issue("admin-1", "a@sajuwooju.com", model.RoleAdmin)

	_, err := auth.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden) {
		t.Errorf("transient failure must not look like a decision: %v", err)
	}
}

func TestAuthenticateLookupTimeout(t *testing.T) {
	dir := &fakeDirectory{block: true}
	auth := NewAuthService(dir, newTestCodec(t), WithLookupTimeout(20*time.Millisecond))
	token, _, _ := auth.codec.Issue("admin-1", "a@sajuwooju.com", model.RoleAdmin)

	start := time.Now()
	_, err := auth.Authenticate(context.Background(), token)
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("lookup took %v, timeout not applied", elapsed)
	}
}

func TestBreakerOpensOnRepeatedFailures(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection refused")}
	auth := NewAuthService(dir, newTestCodec(t),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}))
	token, _, _ := auth.codec.Issue("admin-1", "a@sajuwooju.com", model.RoleAdmin)
	ctx := context.Background()

	auth.Authenticate(ctx, token)
	auth.Authenticate(ctx, token)

	_, err := auth.Authenticate(ctx, token)
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open breaker, got %v", err)
	}
	if n := dir.callCount(); n != 2 {
		t.Errorf("directory calls = %d, want 2 (third short-circuited)", n)
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	dir := &fakeDirectory{admins: map[string]*model.Admin{}}
	auth := NewAuthService(dir, newTestCodec(t),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Minute}))
	token, _, _ := auth.codec.Issue("ghost", "g@sajuwooju.com", model.RoleAdmin)

	for i := 0; i < 3; i++ {
		_, err := auth.Authenticate(context.Background(), token)
		assertReason(t, err, ReasonAccountUnavailable)
	}
	if n := dir.callCount(); n != 3 {
		t.Errorf("directory calls = %d, want 3", n)
	}
}

func TestAuthenticateDoesNotCache(t *testing.T) {
	dir := &fakeDirectory{admins: map[string]*model.Admin{
		"admin-1": {ID: "admin-1", Email: "a@sajuwooju.com", Role: model.RoleAdmin, IsActive: true},
	}}
	auth := NewAuthService(dir, newTestCodec(t))
	token, _, _ := auth.codec.Issue("admin-1", "a@sajuwooju.com", model.RoleAdmin)

	for i := 0; i < 3; i++ {
		if _, err := auth.Authenticate(context.Background(), token); err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
	}
	if n := dir.callCount(); n != 3 {
		t.Errorf("directory calls = %d, want one per request", n)
	}
}

// ---------------------------------------------------------------------------
// Authorization gate
// ---------------------------------------------------------------------------

func TestAuthorizeByRole(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	viewer := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)
	editor := seedAdmin(t, store, "editor@sajuwooju.com", "password123", model.RoleAdmin, true)
	super := seedAdmin(t, store, "root@sajuwooju.com", "password123", model.RoleSuperAdmin, true)

	tests := []struct {
		admin *model.Admin
		perm  model.Permission
		allow bool
	}{
		{viewer, model.PermRead, true},
		{viewer, model.PermWrite, false},
		{viewer, model.PermDelete, false},
		{editor, model.PermRead, true},
		{editor, model.PermWrite, true},
		{editor, model.PermDelete, false},
		{editor, model.PermManageUsers, false},
		{super, model.PermDelete, true},
		{super, model.PermManageUsers, true},
		{super, model.PermManageSettings, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.admin.Role)+"/"+string(tt.perm), func(t *testing.T) {
			got, err := auth.Authorize(ctx, issueFor(t, auth, tt.admin), tt.perm)
			if tt.allow {
				if err != nil {
					t.Fatalf("expected allowed, got %v", err)
				}
				if got.ID != tt.admin.ID {
					t.Errorf("returned admin %q, want %q", got.ID, tt.admin.ID)
				}
				return
			}
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if errors.Is(err, ErrUnauthenticated) {
				t.Errorf("forbidden must not match ErrUnauthenticated")
			}
		})
	}
}

func TestAuthorizeUnknownRoleHasNoPermissions(t *testing.T) {
	dir := &fakeDirectory{admins: map[string]*model.Admin{
		"admin-1": {ID: "admin-1", Email: "a@sajuwooju.com", Role: "owner", IsActive: true},
	}}
	auth := NewAuthService(dir, newTestCodec(t))
	token, _, _ := auth.codec.Issue("admin-1", "a@sajuwooju.com", "owner")

	if _, err := auth.Authorize(context.Background(), token, model.PermRead); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for unknown role, got %v", err)
	}
}

func TestAuthorizeUnauthenticatedTakesPrecedence(t *testing.T) {
	auth, _ := newTestAuth(t)
	_, err := auth.Authorize(context.Background(), "", model.PermManageUsers)
	assertReason(t, err, ReasonMissingCredential)
}

func TestEvaluate(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	viewer := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)
	gone := seedAdmin(t, store, "gone@sajuwooju.com", "password123", model.RoleSuperAdmin, false)

	if admin, err := auth.Evaluate(ctx, viewer.ID, model.PermRead); err != nil || admin.ID != viewer.ID {
		t.Errorf("viewer read: admin=%v err=%v", admin, err)
	}
	if _, err := auth.Evaluate(ctx, viewer.ID, model.PermWrite); !errors.Is(err, ErrForbidden) {
		t.Errorf("viewer write: expected ErrForbidden, got %v", err)
	}
	if _, err := auth.Evaluate(ctx, gone.ID, model.PermRead); !errors.Is(err, ErrAccountUnavailable) {
		t.Errorf("inactive: expected ErrAccountUnavailable, got %v", err)
	}
	if _, err := auth.Evaluate(ctx, "missing", model.PermRead); !errors.Is(err, ErrAccountUnavailable) {
		t.Errorf("unknown id: expected ErrAccountUnavailable, got %v", err)
	}
}

func TestAuthorizeConcurrent(t *testing.T) {
	auth, store := newTestAuth(t)
	admin := seedAdmin(t, store, "busy@sajuwooju.com", "password123", model.RoleAdmin, true)
	token := issueFor(t, auth, admin)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.Authorize(context.Background(), token, model.PermWrite); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Authorize: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Login / logout
// ---------------------------------------------------------------------------

func TestLoginSuccess(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	admin := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)

	res, err := auth.Login(ctx, "  Viewer@SajuWooju.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Admin.ID != admin.ID {
		t.Errorf("admin: got %q, want %q", res.Admin.ID, admin.ID)
	}
	claims, err := auth.codec.Verify(res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.AdminID() != admin.ID {
		t.Errorf("subject: got %q, want %q", claims.AdminID(), admin.ID)
	}

	got, _ := store.GetAdmin(ctx, admin.ID)
	if got.LastLoginAt == nil {
		t.Error("expected last login to be recorded")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	auth, store := newTestAuth(t)
	seedAdmin(t, store, "active@sajuwooju.com", "password123", model.RoleAdmin, true)
	seedAdmin(t, store, "inactive@sajuwooju.com", "password123", model.RoleAdmin, false)

	cases := map[string][2]string{
		"unknown email":  {"nobody@sajuwooju.com", "password123"},
		"wrong password": {"active@sajuwooju.com", "wrong-password"},
		"inactive":       {"inactive@sajuwooju.com", "password123"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Login(context.Background(), c[0], c[1])
			if err != ErrInvalidLogin {
				t.Errorf("expected exactly ErrInvalidLogin, got %v", err)
			}
		})
	}
}

func TestLoginDirectoryFailure(t *testing.T) {
	auth := NewAuthService(&fakeDirectory{err: errors.New("db down")}, newTestCodec(t))
	_, err := auth.Login(context.Background(), "a@sajuwooju.com", "password123")
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Errorf("expected ErrDirectoryUnavailable, got %v", err)
	}
}

func TestLoginLastLoginUpdateIsBounded(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	dir := &fakeDirectory{
		admins: map[string]*model.Admin{
			"admin-1": {ID: "admin-1", Email: "a@sajuwooju.com", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true},
		},
		stallLastLogin: true,
	}
	auth := NewAuthService(dir, newTestCodec(t), WithLookupTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := auth.Login(context.Background(), "a@sajuwooju.com", "password123")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Login should succeed when only the last-login write stalls: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Login blocked on a stalled last-login update")
	}

	dir.mu.Lock()
	defer dir.mu.Unlock()
	if !errors.Is(dir.lastLoginErr, context.DeadlineExceeded) {
		t.Errorf("last-login update should end on its deadline, got %v", dir.lastLoginErr)
	}
}

func TestLogoutWithoutDenylistKeepsTokenValid(t *testing.T) {
	auth, store := newTestAuth(t)
	ctx := context.Background()
	admin := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)
	token := issueFor(t, auth, admin)

	if auth.RevocationEnabled() {
		t.Fatal("revocation should be disabled by default")
	}
	if err := auth.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := auth.Authenticate(ctx, token); err != nil {
		t.Errorf("token should still authenticate after logout, got %v", err)
	}
}

func TestLogoutWithDenylistRevokes(t *testing.T) {
	deny := &fakeDenylist{revoked: map[string]time.Time{}}
	auth, store := newTestAuth(t, WithDenylist(deny))
	ctx := context.Background()
	admin := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)
	token := issueFor(t, auth, admin)

	if err := auth.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err := auth.Authenticate(ctx, token)
	assertReason(t, err, ReasonRevoked)

	// Invalid tokens are ignored on logout.
	if err := auth.Logout(ctx, "garbage"); err != nil {
		t.Errorf("Logout(garbage): %v", err)
	}
}

func TestDenylistFailureIsTransient(t *testing.T) {
	deny := &fakeDenylist{revoked: map[string]time.Time{}, err: errors.New("redis down")}
	auth, store := newTestAuth(t, WithDenylist(deny))
	admin := seedAdmin(t, store, "viewer@sajuwooju.com", "password123", model.RoleViewer, true)

	_, err := auth.Authenticate(context.Background(), issueFor(t, auth, admin))
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Errorf("expected ErrDirectoryUnavailable, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	hash, err := HashPassword("long-enough-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("long-enough-password")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}
