package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
	"github.com/sajuwooju/sajuwooju/internal/rbac"
	"github.com/sajuwooju/sajuwooju/internal/server/middleware"
	"github.com/sajuwooju/sajuwooju/internal/service"
)

// AdminHandler manages admin accounts and exposes the role table.
type AdminHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store *config.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: store, logger: logger}
}

type roleInfo struct {
	Role        model.Role         `json:"role"`
	Permissions []model.Permission `json:"permissions"`
}

// ListRoles handles GET /api/admin/roles.
func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles := rbac.KnownRoles()
	out := make([]roleInfo, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleInfo{Role: role, Permissions: rbac.PermissionsFor(role).List()})
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: out,
		Meta:     &model.ResponseMeta{Count: len(out)},
	})
}

// ListAdmins handles GET /api/admin/admins.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.store.ListAdmins(r.Context())
	if err != nil {
		writeStoreError(w, h.logger, "list admins", err)
		return
	}
	items, meta := page(r, admins)
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: items, Meta: meta})
}

type createAdminRequest struct {
	Email    string     `json:"email" validate:"required,email,max=254"`
	Password string     `json:"password" validate:"required,min=8,max=256"`
	Name     string     `json:"name" validate:"required,max=100"`
	Role     model.Role `json:"role" validate:"required,oneof=super_admin admin viewer"`
}

// CreateAdmin handles POST /api/admin/admins.
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	admin := &model.Admin{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.store.CreateAdmin(r.Context(), admin); err != nil {
		if errors.Is(err, config.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "An admin with this email already exists")
			return
		}
		writeStoreError(w, h.logger, "create admin", err)
		return
	}

	h.logger.Info("admin created", "admin_id", admin.ID, "role", admin.Role,
		"by", actorID(r))
	writeJSON(w, http.StatusCreated, admin)
}

type statusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// SetStatus handles PATCH /api/admin/admins/{id}/status.
func (h *AdminHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !*req.IsActive && id == actorID(r) {
		writeError(w, http.StatusConflict, "You cannot deactivate your own account")
		return
	}
	if err := h.store.SetAdminActive(r.Context(), id, *req.IsActive); err != nil {
		writeStoreError(w, h.logger, "set admin status", err)
		return
	}
	h.respondAdmin(w, r, id, "admin status changed", "is_active", *req.IsActive)
}

type roleRequest struct {
	Role model.Role `json:"role" validate:"required,oneof=super_admin admin viewer"`
}

// SetRole handles PATCH /api/admin/admins/{id}/role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req roleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if actor := middleware.AdminFromContext(r.Context()); actor != nil && actor.ID == id && req.Role != actor.Role {
		writeError(w, http.StatusConflict, "You cannot change your own role")
		return
	}
	if err := h.store.SetAdminRole(r.Context(), id, req.Role); err != nil {
		writeStoreError(w, h.logger, "set admin role", err)
		return
	}
	h.respondAdmin(w, r, id, "admin role changed", "role", req.Role)
}

func (h *AdminHandler) respondAdmin(w http.ResponseWriter, r *http.Request, id, msg string, attrs ...any) {
	admin, err := h.store.GetAdmin(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.logger, "get admin", err)
		return
	}
	h.logger.Info(msg, append([]any{"admin_id", id, "by", actorID(r)}, attrs...)...)
	writeJSON(w, http.StatusOK, admin)
}

// actorID returns the ID of the authenticated admin making the request.
func actorID(r *http.Request) string {
	if a := middleware.AdminFromContext(r.Context()); a != nil {
		return a.ID
	}
	return ""
}

// writeStoreError maps store errors onto HTTP responses.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, config.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, config.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Already exists")
	default:
		logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
