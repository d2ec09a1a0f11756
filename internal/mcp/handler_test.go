package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

type fakeDirectory struct {
	admins []model.Admin
	err    error

	// getErr fails only the by-ID reads the gate performs.
	getErr   error
	getCalls int
}

func (f *fakeDirectory) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.admins {
		if f.admins[i].ID == id {
			cp := f.admins[i]
			return &cp, nil
		}
	}
	return nil, config.ErrNotFound
}

func (f *fakeDirectory) UpdateAdminLastLogin(context.Context, string) error { return nil }

func (f *fakeDirectory) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.admins, nil
}

func (f *fakeDirectory) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.admins {
		if f.admins[i].Email == email {
			return &f.admins[i], nil
		}
	}
	return nil, config.ErrNotFound
}

func newTestServer(t *testing.T) (*MCPServer, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{admins: []model.Admin{
		{ID: "1", Email: "root@sajuwooju.kr", Name: "Root", Role: model.RoleSuperAdmin, IsActive: true, PasswordHash: "$2a$10$hash"},
		{ID: "2", Email: "ops@sajuwooju.kr", Name: "Ops", Role: model.RoleAdmin, IsActive: true},
		{ID: "3", Email: "gone@sajuwooju.kr", Name: "Gone", Role: model.RoleAdmin, IsActive: false},
		{ID: "4", Email: "view@sajuwooju.kr", Name: "View", Role: model.RoleViewer, IsActive: true},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := service.NewTokenCodec([]byte("mcp-test-secret"))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	gate := service.NewAuthService(dir, codec, service.WithLogger(logger))
	return NewMCPServer(dir, gate, "http://localhost:8080", "test", logger), dir
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", res.Content[0])
	}
	return tc.Text
}

func TestListRoles(t *testing.T) {
	s, _ := newTestServer(t)
	res, err := s.handleListRoles(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}

	var roles []roleEntry
	if err := json.Unmarshal([]byte(resultText(t, res)), &roles); err != nil {
		t.Fatal(err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 roles, got %d", len(roles))
	}
	for _, r := range roles {
		if r.Role == model.RoleSuperAdmin && len(r.Permissions) != 5 {
			t.Errorf("super_admin permissions = %v", r.Permissions)
		}
	}
}

func TestListAdmins(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{"all", nil, 4},
		{"by role", map[string]interface{}{"role": "admin"}, 2},
		{"active only", map[string]interface{}{"active_only": true}, 3},
		{"role and active", map[string]interface{}{"role": "admin", "active_only": true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleListAdmins(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			text := resultText(t, res)
			if strings.Contains(text, "$2a$") {
				t.Fatal("password hash leaked")
			}
			var out struct {
				Count int `json:"count"`
			}
			if err := json.Unmarshal([]byte(text), &out); err != nil {
				t.Fatal(err)
			}
			if out.Count != tt.want {
				t.Errorf("count = %d, want %d", out.Count, tt.want)
			}
		})
	}
}

func TestListAdminsErrors(t *testing.T) {
	s, dir := newTestServer(t)

	res, _ := s.handleListAdmins(context.Background(), callRequest(map[string]interface{}{"role": "owner"}))
	if !res.IsError {
		t.Error("expected error for unknown role")
	}

	dir.err = errors.New("connection refused")
	res, _ = s.handleListAdmins(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("expected error when directory fails")
	}
}

func TestCheckPermission(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		email, perm string
		allowed     bool
		reason      string
	}{
		{"root@sajuwooju.kr", "manage_users", true, "granted"},
		{"OPS@sajuwooju.kr", "write", true, "granted"},
		{"ops@sajuwooju.kr", "delete", false, "does not grant"},
		{"view@sajuwooju.kr", "write", false, "does not grant"},
		{"gone@sajuwooju.kr", "read", false, "deactivated"},
		{"nobody@sajuwooju.kr", "read", false, "no admin"},
	}
	for _, tt := range tests {
		t.Run(tt.email+"/"+tt.perm, func(t *testing.T) {
			res, err := s.handleCheckPermission(context.Background(),
				callRequest(map[string]interface{}{"email": tt.email, "permission": tt.perm}))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError {
				t.Fatalf("unexpected tool error: %s", resultText(t, res))
			}
			var out permissionCheck
			if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
				t.Fatal(err)
			}
			if out.Allowed != tt.allowed || !strings.Contains(out.Reason, tt.reason) {
				t.Errorf("got %+v, want allowed=%v reason~%q", out, tt.allowed, tt.reason)
			}
		})
	}
}

func TestCheckPermissionUsesGate(t *testing.T) {
	s, dir := newTestServer(t)
	dir.admins = append(dir.admins, model.Admin{ID: "5", Email: "odd@sajuwooju.kr", Role: model.Role("owner"), IsActive: true})

	res, _ := s.handleCheckPermission(context.Background(),
		callRequest(map[string]interface{}{"email": "odd@sajuwooju.kr", "permission": "read"}))
	var out permissionCheck
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Allowed {
		t.Errorf("unknown role should hold no permissions, got %+v", out)
	}
	if dir.getCalls == 0 {
		t.Error("expected the check to read the directory record by ID")
	}

	dir.getErr = errors.New("connection reset")
	res, _ = s.handleCheckPermission(context.Background(),
		callRequest(map[string]interface{}{"email": "root@sajuwooju.kr", "permission": "read"}))
	if !res.IsError {
		t.Error("expected error when the gate's directory read fails")
	}
}

func TestCheckPermissionBadInput(t *testing.T) {
	s, dir := newTestServer(t)

	for _, args := range []map[string]interface{}{
		{"permission": "read"},
		{"email": "root@sajuwooju.kr"},
		{"email": "root@sajuwooju.kr", "permission": "launch_rockets"},
	} {
		res, _ := s.handleCheckPermission(context.Background(), callRequest(args))
		if !res.IsError {
			t.Errorf("expected error for %v", args)
		}
	}

	dir.err = errors.New("timeout")
	res, _ := s.handleCheckPermission(context.Background(),
		callRequest(map[string]interface{}{"email": "root@sajuwooju.kr", "permission": "read"}))
	if !res.IsError {
		t.Error("expected error when directory fails")
	}
}

func TestResources(t *testing.T) {
	s, _ := newTestServer(t)

	contents, err := s.handleRolesResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.URI != rolesURI || !strings.Contains(tc.Text, "manage_settings") {
		t.Errorf("unexpected roles resource: %+v", tc)
	}

	contents, err = s.handleOpenAPIResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc = contents[0].(mcp.TextResourceContents)
	if !strings.Contains(tc.Text, "/api/admin/auth/login") || !strings.Contains(tc.Text, "http://localhost:8080") {
		t.Errorf("openapi resource missing expected content")
	}
}

func TestReadOnlyAnnotation(t *testing.T) {
	a := readOnlyAnnotation()
	if a.ReadOnlyHint == nil || !*a.ReadOnlyHint {
		t.Error("ReadOnlyHint should be true")
	}
	if a.IdempotentHint == nil || !*a.IdempotentHint {
		t.Error("IdempotentHint should be true")
	}
}
