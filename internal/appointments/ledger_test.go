package appointments

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/internal/scheduler"
)

var ledgerNow = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

type manualScheduler struct {
	mu       sync.Mutex
	handlers map[string]scheduler.HandlerFunc
	jobs     map[string]scheduler.Job
	err      error
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{handlers: map[string]scheduler.HandlerFunc{}, jobs: map[string]scheduler.Job{}}
}

func (m *manualScheduler) Schedule(ctx context.Context, job scheduler.Job) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *manualScheduler) Cancel(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func (m *manualScheduler) Handle(kind string, fn scheduler.HandlerFunc) {
	m.handlers[kind] = fn
}

func (m *manualScheduler) pending() []scheduler.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]scheduler.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	return out
}

// fireAll runs every pending job as if its delay had elapsed.
func (m *manualScheduler) fireAll(t *testing.T) {
	t.Helper()
	for _, job := range m.pending() {
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		require.NoError(t, m.handlers[job.Kind](context.Background(), job))
	}
}

type flakyNotifier struct {
	*notifications.Service
	failBooked bool
}

func (f *flakyNotifier) AppointmentBooked(ctx context.Context, evt notifications.AppointmentEvent) (*notifications.Notification, error) {
	if f.failBooked {
		return nil, errors.New("notifications store down")
	}
	return f.Service.AppointmentBooked(ctx, evt)
}

type flakyRepository struct {
	*InMemoryRepository
	failUpdate bool
}

func (r *flakyRepository) Update(ctx context.Context, appt *Appointment) error {
	if r.failUpdate {
		return errors.New("appointments store down")
	}
	return r.InMemoryRepository.Update(ctx, appt)
}

type ledgerFixture struct {
	ledger    *Ledger
	repo      *flakyRepository
	doctors   *doctors.InMemoryRepository
	notes     *notifications.Service
	notifier  *flakyNotifier
	scheduler *manualScheduler
}

var (
	patient = identity.User{ID: "patient-1", Email: "p1@example.com"}
	other   = identity.User{ID: "patient-2"}
)

func newLedgerFixture(t *testing.T, policy ConfirmPolicy) *ledgerFixture {
	t.Helper()
	ctx := context.Background()

	doctorRepo := doctors.NewInMemoryRepository()
	require.NoError(t, doctorRepo.Create(ctx, &doctors.Doctor{
		ID:             "doc-1",
		Name:           "Dr. Sarah Johnson",
		Specialization: "Cardiology",
		Fee:            200,
		IsAvailable:    true,
		Slots: []doctors.Slot{
			{Date: "2025-01-10", Time: "09:00"},
			{Date: "2025-01-10", Time: "10:00"},
		},
	}))
	directory := doctors.NewService(doctorRepo, nil, nil)

	notes := notifications.NewService(notifications.NewInMemoryRepository(), nil)
	notifier := &flakyNotifier{Service: notes}
	sched := newManualScheduler()
	repo := &flakyRepository{InMemoryRepository: NewInMemoryRepository()}

	ledger := NewLedger(repo, directory, doctorRepo, notifier, sched, LedgerConfig{
		Policy: policy,
		Clock:  func() time.Time { return ledgerNow },
	}, nil)

	return &ledgerFixture{
		ledger:    ledger,
		repo:      repo,
		doctors:   doctorRepo,
		notes:     notes,
		notifier:  notifier,
		scheduler: sched,
	}
}

func (f *ledgerFixture) slot(t *testing.T, date, tm string) doctors.Slot {
	t.Helper()
	doctor, err := f.doctors.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	for _, s := range doctor.Slots {
		if s.Date == date && s.Time == tm {
			return s
		}
	}
	t.Fatalf("slot %s %s not found", date, tm)
	return doctors.Slot{}
}

// assertSlotInvariant checks that every slot is booked exactly when an active
// appointment references it.
func (f *ledgerFixture) assertSlotInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	doctor, err := f.doctors.Get(ctx, "doc-1")
	require.NoError(t, err)

	active := map[string]bool{}
	for _, user := range []identity.User{patient, other} {
		appts, err := f.repo.ListForPatient(ctx, user.ID)
		require.NoError(t, err)
		for _, a := range appts {
			if a.Status != StatusCancelled {
				active[a.Date+" "+a.Time] = true
			}
		}
	}
	for _, s := range doctor.Slots {
		assert.Equal(t, active[s.Date+" "+s.Time], s.IsBooked, "slot %s %s", s.Date, s.Time)
	}
}

func (f *ledgerFixture) notificationTitles(t *testing.T, userID string) []string {
	t.Helper()
	items, err := f.notes.List(context.Background(), userID)
	require.NoError(t, err)
	titles := make([]string, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		titles = append(titles, items[i].Title)
	}
	return titles
}

func book(t *testing.T, f *ledgerFixture, user identity.User, date, tm string) *Appointment {
	t.Helper()
	appt, err := f.ledger.Book(context.Background(), user, BookRequest{DoctorID: "doc-1", Date: date, Time: tm, Symptoms: "chest pain"})
	require.NoError(t, err)
	return appt
}

func TestLedger_Book(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)

	appt := book(t, f, patient, "2025-01-10", "09:00")
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, PaymentPending, appt.PaymentStatus)
	assert.Equal(t, 200.0, appt.Fee)
	assert.Equal(t, "chest pain", appt.Symptoms)
	assert.True(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Equal(t, []string{"Appointment Booked"}, f.notificationTitles(t, patient.ID))

	jobs := f.scheduler.pending()
	require.Len(t, jobs, 1)
	assert.Equal(t, JobConfirm, jobs[0].Kind)
	assert.Equal(t, ledgerNow.Add(DefaultConfirmationDelay), jobs[0].RunAt)
	assert.Equal(t, appt.ConfirmToken, jobs[0].ID)

	f.assertSlotInvariant(t)
}

func TestLedger_BookTakenSlotLeavesStateUnchanged(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	book(t, f, patient, "2025-01-10", "09:00")

	_, err := f.ledger.Book(context.Background(), other, BookRequest{DoctorID: "doc-1", Date: "2025-01-10", Time: "09:00"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	count, _ := f.ledger.CountForPatient(context.Background(), other.ID)
	assert.Zero(t, count)
	assert.Empty(t, f.notificationTitles(t, other.ID))
	assert.Len(t, f.scheduler.pending(), 1)
	f.assertSlotInvariant(t)
}

func TestLedger_BookRejections(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()

	_, err := f.ledger.Book(ctx, patient, BookRequest{DoctorID: "missing", Date: "2025-01-10", Time: "09:00"})
	assert.ErrorIs(t, err, doctors.ErrDoctorNotFound)

	_, err = f.ledger.Book(ctx, patient, BookRequest{DoctorID: "doc-1", Date: "10/01/2025", Time: "9am"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.ledger.Book(ctx, patient, BookRequest{DoctorID: "doc-1"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = f.ledger.Book(ctx, patient, BookRequest{Date: "2025-01-10", Time: "09:00"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	f.assertSlotInvariant(t)
}

func TestLedger_CancelReleasesSlot(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	appt := book(t, f, patient, "2025-01-10", "09:00")

	cancelled, err := f.ledger.Cancel(ctx, patient.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Empty(t, f.scheduler.pending())
	assert.Equal(t, []string{"Appointment Booked", "Appointment Cancelled"}, f.notificationTitles(t, patient.ID))
	f.assertSlotInvariant(t)

	_, err = f.ledger.Cancel(ctx, patient.ID, appt.ID)
	require.NoError(t, err)
	assert.False(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Len(t, f.notificationTitles(t, patient.ID), 3)
	f.assertSlotInvariant(t)

	rebooked := book(t, f, other, "2025-01-10", "09:00")
	assert.Equal(t, StatusPending, rebooked.Status)
	f.assertSlotInvariant(t)
}

func TestLedger_RepeatedCancelKeepsRebookedSlot(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	first := book(t, f, patient, "2025-01-10", "09:00")

	_, err := f.ledger.Cancel(ctx, patient.ID, first.ID)
	require.NoError(t, err)
	second := book(t, f, other, "2025-01-10", "09:00")

	again, err := f.ledger.Cancel(ctx, patient.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
	assert.True(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Len(t, f.scheduler.pending(), 1)
	assert.Equal(t, []string{"Appointment Booked", "Appointment Cancelled", "Appointment Cancelled"}, f.notificationTitles(t, patient.ID))
	f.assertSlotInvariant(t)

	_, err = f.ledger.Book(ctx, patient, BookRequest{DoctorID: "doc-1", Date: "2025-01-10", Time: "09:00"})
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	stored, err := f.repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestLedger_CancelKeepsConfirmationWhenUpdateFails(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	appt := book(t, f, patient, "2025-01-10", "09:00")

	f.repo.failUpdate = true
	_, err := f.ledger.Cancel(ctx, patient.ID, appt.ID)
	require.Error(t, err)
	assert.Len(t, f.scheduler.pending(), 1)
	assert.True(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	f.assertSlotInvariant(t)

	f.repo.failUpdate = false
	f.scheduler.fireAll(t)
	stored, err := f.repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
	f.assertSlotInvariant(t)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}

func TestLedger_CancelOthersAppointment(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	appt := book(t, f, patient, "2025-01-10", "09:00")

	_, err := f.ledger.Cancel(context.Background(), other.ID, appt.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, err := f.repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.True(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Len(t, f.scheduler.pending(), 1)

	_, err = f.ledger.Cancel(context.Background(), patient.ID, "missing")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestLedger_DeferredConfirmation(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	appt := book(t, f, patient, "2025-01-10", "09:00")

	f.scheduler.fireAll(t)

	stored, err := f.repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
	assert.Empty(t, stored.ConfirmToken)
	assert.Equal(t, []string{"Appointment Booked", "Appointment Confirmed"}, f.notificationTitles(t, patient.ID))
	f.assertSlotInvariant(t)
}

func TestLedger_ConfirmAfterCancelIsNoOp(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	appt := book(t, f, patient, "2025-01-10", "09:00")
	token := appt.ConfirmToken

	_, err := f.ledger.Cancel(ctx, patient.ID, appt.ID)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Confirm(ctx, appt.ID, token))
	stored, err := f.repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
	assert.Equal(t, []string{"Appointment Booked", "Appointment Cancelled"}, f.notificationTitles(t, patient.ID))
	f.assertSlotInvariant(t)
}

func TestLedger_ConfirmRequiresMatchingToken(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	appt := book(t, f, patient, "2025-01-10", "09:00")

	require.NoError(t, f.ledger.Confirm(ctx, appt.ID, "stale-token"))
	stored, _ := f.repo.Get(ctx, appt.ID)
	assert.Equal(t, StatusPending, stored.Status)

	require.NoError(t, f.ledger.Confirm(ctx, "missing", "any"))
}

func TestLedger_UnconditionalConfirmResurrectsCancelled(t *testing.T) {
	f := newLedgerFixture(t, PolicyUnconditional)
	ctx := context.Background()
	appt := book(t, f, patient, "2025-01-10", "09:00")

	_, err := f.ledger.Cancel(ctx, patient.ID, appt.ID)
	require.NoError(t, err)
	require.Len(t, f.scheduler.pending(), 1, "job stays armed under the unconditional policy")

	f.scheduler.fireAll(t)

	stored, err := f.repo.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, stored.Status)
	assert.False(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Equal(t, []string{"Appointment Booked", "Appointment Cancelled", "Appointment Confirmed"}, f.notificationTitles(t, patient.ID))
}

func TestLedger_BookCompensatesWhenNotificationFails(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	f.notifier.failBooked = true

	_, err := f.ledger.Book(context.Background(), patient, BookRequest{DoctorID: "doc-1", Date: "2025-01-10", Time: "09:00"})
	require.Error(t, err)

	appts, err := f.repo.ListForPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, StatusCancelled, appts[0].Status)
	assert.False(t, f.slot(t, "2025-01-10", "09:00").IsBooked)
	assert.Empty(t, f.scheduler.pending())
	f.assertSlotInvariant(t)
}

func TestLedger_BookCompensatesWhenSchedulingFails(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	f.scheduler.err = errors.New("redis down")

	_, err := f.ledger.Book(context.Background(), patient, BookRequest{DoctorID: "doc-1", Date: "2025-01-10", Time: "10:00"})
	require.Error(t, err)
	assert.False(t, f.slot(t, "2025-01-10", "10:00").IsBooked)
	f.assertSlotInvariant(t)
}

func TestLedger_ConcurrentBookingsClaimOnce(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Book(context.Background(), patient, BookRequest{DoctorID: "doc-1", Date: "2025-01-10", Time: "09:00"})
			if err == nil {
				wins.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	f.assertSlotInvariant(t)
}

func TestLedger_ListForPatient(t *testing.T) {
	f := newLedgerFixture(t, PolicyPendingOnly)
	ctx := context.Background()
	book(t, f, patient, "2025-01-10", "09:00")
	second := book(t, f, patient, "2025-01-10", "10:00")

	items, err := f.ledger.ListForPatient(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	require.NotNil(t, items[0].Doctor)
	assert.Equal(t, "Dr. Sarah Johnson", items[0].Doctor.Name)
	assert.Equal(t, "Cardiology", items[0].Doctor.Specialization)

	count, err := f.ledger.CountForPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestParseConfirmPolicy(t *testing.T) {
	assert.Equal(t, PolicyUnconditional, ParseConfirmPolicy(" Unconditional "))
	assert.Equal(t, PolicyPendingOnly, ParseConfirmPolicy("pending_only"))
	assert.Equal(t, PolicyPendingOnly, ParseConfirmPolicy("bogus"))
}
