package doctors

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/docbook-ai/internal/identity"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(nil)
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Get("/doctors", h.ListDoctors)
	r.Post("/doctors", h.CreateDoctor)
	r.Post("/doctors/seed", h.SeedDoctors)
	r.Get("/doctors/specializations", h.ListSpecializations)
	r.Get("/doctors/{doctorID}", h.GetDoctor)
	r.Get("/doctors/{doctorID}/slots", h.ListAvailableSlots)
	return r, svc
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(identity.WithUser(req.Context(), identity.User{ID: "admin"}))
}

func TestHandler_SeedAndList(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/doctors/seed", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/doctors/seed", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors?specialization=Neurology", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doctors []Doctor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Lisa Thompson", doctors[0].Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/"+doctors[0].ID+"/slots", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []Slot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slots))
	assert.Len(t, slots, 210)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/specializations", nil))
	assert.JSONEq(t, `["Cardiology","Dermatology","Neurology","Orthopedics","Pediatrics"]`, rec.Body.String())
}

func TestHandler_GetDoctorNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"doctor not found"}`, rec.Body.String())
}

func TestHandler_CreateDoctor(t *testing.T) {
	router, svc := newTestRouter(t)

	body, _ := json.Marshal(validProfile())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/doctors", bytes.NewReader(body))))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	doctor, err := svc.Get(context.Background(), resp["id"])
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", doctor.Specialization)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/doctors", bytes.NewReader([]byte(`{"name":"x"}`)))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
