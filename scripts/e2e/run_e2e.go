// Package main runs end-to-end scenarios against a running docbook API.
//
// Scenarios cover the patient flow: browsing doctors, booking and cancelling
// slots, double-booking protection, notification fan-out, the chat assistant
// and the deferred confirmation.
//
// Usage:
//
//	AUTH_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
//	AUTH_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go deferred-confirm
//
// deferred-confirm waits CONFIRMATION_DELAY (default 60s) plus a margin.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	maxWaitSecs  = 45
	pollInterval = time.Second
)

var (
	apiBase   string
	jwtSecret string
	jwtIssuer string
	client    = &http.Client{Timeout: 15 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// patient is a fresh identity per scenario so runs do not interfere.
type patient struct {
	id    string
	token string
}

func newPatient() (patient, error) {
	id := "e2e-" + uuid.NewString()
	token, err := issueToken(id)
	return patient{id: id, token: token}, err
}

func issueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	if jwtIssuer != "" {
		claims.Issuer = jwtIssuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func call(method, path, token string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(raw) > 0 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

type doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

type slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type appointment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type notification struct {
	Title         string `json:"title"`
	AppointmentID string `json:"appointmentId"`
}

type chatMessage struct {
	Message string `json:"message"`
	IsAI    bool   `json:"isAI"`
}

// firstOpenSlot seeds the catalog if needed and returns a bookable slot.
func firstOpenSlot(p patient) (doctor, slot, error) {
	if _, err := call(http.MethodPost, "/doctors/seed", p.token, nil, nil); err != nil {
		return doctor{}, slot{}, err
	}
	var doctors []doctor
	if _, err := call(http.MethodGet, "/doctors", "", nil, &doctors); err != nil {
		return doctor{}, slot{}, err
	}
	for _, d := range doctors {
		var slots []slot
		if _, err := call(http.MethodGet, "/doctors/"+d.ID+"/slots", "", nil, &slots); err != nil {
			return doctor{}, slot{}, err
		}
		if len(slots) > 0 {
			return d, slots[len(slots)-1], nil
		}
	}
	return doctor{}, slot{}, fmt.Errorf("no open slots")
}

func book(p patient, d doctor, s slot) (string, int, error) {
	var created struct {
		ID string `json:"id"`
	}
	status, err := call(http.MethodPost, "/appointments", p.token, map[string]string{
		"doctorId": d.ID, "date": s.Date, "time": s.Time, "symptoms": "e2e check",
	}, &created)
	return created.ID, status, err
}

func slotOpen(d doctor, s slot) bool {
	var slots []slot
	if _, err := call(http.MethodGet, "/doctors/"+d.ID+"/slots", "", nil, &slots); err != nil {
		return false
	}
	for _, open := range slots {
		if open == s {
			return true
		}
	}
	return false
}

func appointmentStatus(p patient, id string) string {
	var items []appointment
	if _, err := call(http.MethodGet, "/appointments", p.token, nil, &items); err != nil {
		return ""
	}
	for _, a := range items {
		if a.ID == id {
			return a.Status
		}
	}
	return ""
}

func notificationTitles(p patient) []string {
	var items []notification
	if _, err := call(http.MethodGet, "/notifications", p.token, nil, &items); err != nil {
		return nil
	}
	titles := make([]string, 0, len(items))
	for _, n := range items {
		titles = append(titles, n.Title)
	}
	return titles
}

func containsAll(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if !strings.Contains(lower, strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

func scenarioHealth(t *T) {
	var body map[string]string
	status, err := call(http.MethodGet, "/health", "", nil, &body)
	if err != nil {
		t.fatalf("health: %v", err)
		return
	}
	t.check("health returns 200", status == http.StatusOK)
	t.check("health reports ok", body["status"] == "ok")

	status, _ = call(http.MethodGet, "/appointments", "", nil, nil)
	t.check("appointments require a token", status == http.StatusUnauthorized)
}

func scenarioCatalog(t *T) {
	p, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	if _, err := call(http.MethodPost, "/doctors/seed", p.token, nil, nil); err != nil {
		t.fatalf("seed: %v", err)
		return
	}
	var specs []string
	if _, err := call(http.MethodGet, "/doctors/specializations", "", nil, &specs); err != nil {
		t.fatalf("specializations: %v", err)
		return
	}
	t.check("specializations listed", len(specs) > 0)

	var cardio []doctor
	_, _ = call(http.MethodGet, "/doctors?specialization=Cardiology", "", nil, &cardio)
	allCardio := len(cardio) > 0
	for _, d := range cardio {
		allCardio = allCardio && d.Specialization == "Cardiology"
	}
	t.check("specialization filter is exact", allCardio)

	var none []doctor
	_, _ = call(http.MethodGet, "/doctors?search=zzzz-nobody", "", nil, &none)
	t.check("unmatched search is empty", len(none) == 0)
}

func scenarioBookAndCancel(t *T) {
	p, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	d, s, err := firstOpenSlot(p)
	if err != nil {
		t.fatalf("slot: %v", err)
		return
	}
	fmt.Printf("    booking %s %s with %s\n", s.Date, s.Time, d.Name)

	id, status, err := book(p, d, s)
	if err != nil {
		t.fatalf("book: %v", err)
		return
	}
	t.check("book returns 201", status == http.StatusCreated)
	t.check("appointment is pending", appointmentStatus(p, id) == "pending")
	t.check("slot no longer offered", !slotOpen(d, s))
	t.check("booked notice emitted", containsAll(strings.Join(notificationTitles(p), "|"), "Appointment Booked"))

	status, err = call(http.MethodPost, "/appointments/"+id+"/cancel", p.token, nil, nil)
	if err != nil {
		t.fatalf("cancel: %v", err)
		return
	}
	t.check("cancel returns 200", status == http.StatusOK)
	t.check("appointment is cancelled", appointmentStatus(p, id) == "cancelled")
	t.check("slot offered again", slotOpen(d, s))
	t.check("cancelled notice emitted", containsAll(strings.Join(notificationTitles(p), "|"), "Appointment Cancelled"))
}

func scenarioDoubleBooking(t *T) {
	first, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	second, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	d, s, err := firstOpenSlot(first)
	if err != nil {
		t.fatalf("slot: %v", err)
		return
	}

	id, status, err := book(first, d, s)
	if err != nil || status != http.StatusCreated {
		t.fatalf("first booking failed: %d %v", status, err)
		return
	}
	_, status, _ = book(second, d, s)
	t.check("second booking conflicts", status == http.StatusConflict)

	status, _ = call(http.MethodPost, "/appointments/"+id+"/cancel", second.token, nil, nil)
	t.check("foreign cancel forbidden", status == http.StatusForbidden)
	t.check("appointment untouched", appointmentStatus(first, id) == "pending")

	_, _ = call(http.MethodPost, "/appointments/"+id+"/cancel", first.token, nil, nil)
}

func scenarioChat(t *T) {
	p, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	status, err := call(http.MethodPost, "/chat/messages", p.token, map[string]interface{}{
		"message": "I want to book an appointment",
		"context": map[string]string{"type": "booking"},
	}, nil)
	if err != nil {
		t.fatalf("send: %v", err)
		return
	}
	t.check("send returns 202", status == http.StatusAccepted)

	status, _ = call(http.MethodPost, "/chat/messages", p.token, map[string]interface{}{
		"message": "hi", "context": map[string]string{"type": "telepathy"},
	}, nil)
	t.check("unknown context rejected", status == http.StatusBadRequest)

	deadline := time.Now().Add(maxWaitSecs * time.Second)
	var thread []chatMessage
	for time.Now().Before(deadline) {
		thread = nil
		_, _ = call(http.MethodGet, "/chat/messages", p.token, nil, &thread)
		if len(thread) >= 2 {
			break
		}
		time.Sleep(pollInterval)
	}
	if len(thread) < 2 {
		t.fatalf("no assistant reply after %ds", maxWaitSecs)
		return
	}
	t.check("user message first", !thread[0].IsAI)
	t.check("assistant reply second", thread[1].IsAI && strings.TrimSpace(thread[1].Message) != "")
	fmt.Printf("    reply: %.120s\n", thread[1].Message)
}

func scenarioDeferredConfirm(t *T) {
	p, err := newPatient()
	if err != nil {
		t.fatalf("token: %v", err)
		return
	}
	d, s, err := firstOpenSlot(p)
	if err != nil {
		t.fatalf("slot: %v", err)
		return
	}
	id, status, err := book(p, d, s)
	if err != nil || status != http.StatusCreated {
		t.fatalf("booking failed: %d %v", status, err)
		return
	}

	delay := time.Minute
	if raw := os.Getenv("CONFIRMATION_DELAY"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			delay = parsed
		}
	}
	deadline := time.Now().Add(delay + maxWaitSecs*time.Second)
	for time.Now().Before(deadline) && appointmentStatus(p, id) != "confirmed" {
		time.Sleep(pollInterval)
	}
	t.check("appointment confirmed after delay", appointmentStatus(p, id) == "confirmed")
	t.check("confirmed notice emitted", containsAll(strings.Join(notificationTitles(p), "|"), "Appointment Confirmed"))

	_, _ = call(http.MethodPost, "/appointments/"+id+"/cancel", p.token, nil, nil)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	jwtSecret = os.Getenv("AUTH_JWT_SECRET")
	jwtIssuer = os.Getenv("AUTH_JWT_ISSUER")
	if apiBase == "" || jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and AUTH_JWT_SECRET required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"catalog", scenarioCatalog},
		{"book-and-cancel", scenarioBookAndCancel},
		{"double-booking", scenarioDoubleBooking},
		{"chat", scenarioChat},
		{"deferred-confirm", scenarioDeferredConfirm},
	}

	// deferred-confirm is slow, so it only runs when named.
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}
		if filter == "" && s.Name == "deferred-confirm" {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "OK"
		if t.failed > 0 {
			status = "FAILED"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME SCENARIOS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL SCENARIOS PASSED")
}
