package doctors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Handler serves the doctor directory over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new doctors handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListDoctors handles GET /doctors.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Specialization: r.URL.Query().Get("specialization"),
		Search:         r.URL.Query().Get("search"),
	}
	doctors, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

// ListSpecializations handles GET /doctors/specializations.
func (h *Handler) ListSpecializations(w http.ResponseWriter, r *http.Request) {
	specs, err := h.service.Specializations(r.Context())
	if err != nil {
		h.logger.Error("failed to list specializations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list specializations")
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

// GetDoctor handles GET /doctors/{doctorID}.
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.service.Get(r.Context(), chi.URLParam(r, "doctorID"))
	if errors.Is(err, ErrDoctorNotFound) {
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load doctor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load doctor")
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// ListAvailableSlots handles GET /doctors/{doctorID}/slots.
func (h *Handler) ListAvailableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.AvailableSlots(r.Context(), chi.URLParam(r, "doctorID"))
	if err != nil {
		h.logger.Error("failed to list slots", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// CreateDoctor handles POST /doctors.
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.RequireUser(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	var profile Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doctor, err := h.service.Create(r.Context(), profile)
	if errors.Is(err, ErrInvalidProfile) || errors.Is(err, ErrDuplicateSlot) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to create doctor", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create doctor")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": doctor.ID})
}

// SeedDoctors handles POST /doctors/seed.
func (h *Handler) SeedDoctors(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.RequireUser(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	result, err := h.service.Seed(r.Context())
	if err != nil {
		h.logger.Error("failed to seed doctors", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to seed doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"seeded":        result.Seeded,
		"alreadySeeded": result.AlreadySeeded,
		"message":       result.Message(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
