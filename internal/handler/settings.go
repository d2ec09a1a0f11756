package handler

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
)

var settingKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_.]{0,99}$`)

// SettingsHandler serves the site settings endpoints.
type SettingsHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store *config.Store, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

// ListSettings handles GET /api/admin/settings.
func (h *SettingsHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		writeStoreError(w, h.logger, "list settings", err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: settings,
		Meta:     &model.ResponseMeta{Count: len(settings)},
	})
}

type settingRequest struct {
	Value string `json:"value" validate:"max=10000"`
}

// PutSetting handles PUT /api/admin/settings/{key}.
func (h *SettingsHandler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !settingKeyPattern.MatchString(key) {
		writeError(w, http.StatusBadRequest, "Invalid setting key", map[string]interface{}{"key": key})
		return
	}
	var req settingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	st := &model.Setting{Key: key, Value: req.Value, UpdatedBy: actorID(r)}
	if err := h.store.SetSetting(r.Context(), st); err != nil {
		writeStoreError(w, h.logger, "set setting", err)
		return
	}
	h.logger.Info("setting changed", "key", key, "by", st.UpdatedBy)
	writeJSON(w, http.StatusOK, st)
}
