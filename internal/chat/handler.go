package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Handler exposes the chat thread of the authenticated user.
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

type sendMessageRequest struct {
	Message string   `json:"message"`
	Context *Context `json:"context,omitempty"`
}

// Messages handles GET /chat/messages.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	msgs, err := h.service.Messages(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load chat thread", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Send handles POST /chat/messages. The reply arrives later over the
// realtime feed and in the thread.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, ErrInvalidContext) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.service.SendMessage(r.Context(), user.ID, req.Message, req.Context)
	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrInvalidContext):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to send chat message", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": msg.ID, "queued": true})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
