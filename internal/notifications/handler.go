package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Handler serves a user's notification feed.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// List handles GET /notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	items, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	count, err := h.service.UnreadCount(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to count notifications", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles POST /notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	err = h.service.MarkRead(r.Context(), user.ID, chi.URLParam(r, "notificationID"))
	if errors.Is(err, ErrNotificationNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to mark notification read", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	updated, err := h.service.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to mark notifications read", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
