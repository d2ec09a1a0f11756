package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sajuwooju/sajuwooju/internal/config"
	"github.com/sajuwooju/sajuwooju/internal/model"
)

// NoticeHandler serves the site announcement endpoints.
type NoticeHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewNoticeHandler creates a new NoticeHandler.
func NewNoticeHandler(store *config.Store, logger *slog.Logger) *NoticeHandler {
	return &NoticeHandler{store: store, logger: logger}
}

type noticeRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Body      string `json:"body" validate:"max=20000"`
	Published bool   `json:"published"`
	Pinned    bool   `json:"pinned"`
}

// ListNotices handles GET /api/admin/notices. Pass published=true to hide
// drafts.
func (h *NoticeHandler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.store.ListNotices(r.Context(), queryBool(r, "published"))
	if err != nil {
		writeStoreError(w, h.logger, "list notices", err)
		return
	}
	items, meta := page(r, notices)
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: items, Meta: meta})
}

// CreateNotice handles POST /api/admin/notices.
func (h *NoticeHandler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	var req noticeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	n := &model.Notice{
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
		Pinned:    req.Pinned,
		CreatedBy: actorID(r),
	}
	if err := h.store.CreateNotice(r.Context(), n); err != nil {
		writeStoreError(w, h.logger, "create notice", err)
		return
	}
	h.logger.Info("notice created", "notice_id", n.ID, "by", n.CreatedBy)
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNotice handles PUT /api/admin/notices/{id}.
func (h *NoticeHandler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req noticeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	n := &model.Notice{
		ID:        id,
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
		Pinned:    req.Pinned,
		UpdatedBy: actorID(r),
	}
	if err := h.store.UpdateNotice(r.Context(), n); err != nil {
		writeStoreError(w, h.logger, "update notice", err)
		return
	}
	updated, err := h.store.GetNotice(r.Context(), id)
	if err != nil {
		writeStoreError(w, h.logger, "get notice", err)
		return
	}
	h.logger.Info("notice updated", "notice_id", id, "by", n.UpdatedBy)
	writeJSON(w, http.StatusOK, updated)
}

// DeleteNotice handles DELETE /api/admin/notices/{id}.
func (h *NoticeHandler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteNotice(r.Context(), id); err != nil {
		writeStoreError(w, h.logger, "delete notice", err)
		return
	}
	h.logger.Info("notice deleted", "notice_id", id, "by", actorID(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}
