package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Handler exposes the ledger to patients.
type Handler struct {
	ledger *Ledger
	logger *logging.Logger
}

func NewHandler(ledger *Ledger, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{ledger: ledger, logger: logger}
}

// List handles GET /appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	items, err := h.ledger.ListForPatient(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err, "patient_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Book handles POST /appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.ledger.Book(r.Context(), user, req)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": appt.ID})
}

// Cancel handles POST /appointments/{appointmentID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, err := identity.RequireUser(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	appt, err := h.ledger.Cancel(r.Context(), user.ID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, doctors.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor not found")
	case errors.Is(err, ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusForbidden, "appointment belongs to another patient")
	case errors.Is(err, ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot unavailable")
	default:
		h.logger.Error("appointment operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "appointment operation failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
