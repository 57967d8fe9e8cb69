package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/docbook-ai/internal/doctors"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/internal/observability/metrics"
	"github.com/wolfman30/docbook-ai/internal/scheduler"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

var ledgerTracer = otel.Tracer("docbook.internal.appointments")

// JobConfirm is the scheduler job kind that auto-confirms a booking.
const JobConfirm = "appointment.confirm"

// DefaultConfirmationDelay is how long a booking stays pending before the
// deferred confirmation fires.
const DefaultConfirmationDelay = 60 * time.Second

// ConfirmPolicy decides which appointments the deferred confirmation may
// transition.
type ConfirmPolicy string

const (
	// PolicyPendingOnly confirms only pending appointments whose confirmation
	// token still matches the job.
	PolicyPendingOnly ConfirmPolicy = "pending_only"
	// PolicyUnconditional confirms whatever the current status is, including
	// cancelled appointments.
	PolicyUnconditional ConfirmPolicy = "unconditional"
)

// ParseConfirmPolicy maps configuration text to a policy, defaulting to
// PolicyPendingOnly.
func ParseConfirmPolicy(raw string) ConfirmPolicy {
	if ConfirmPolicy(strings.ToLower(strings.TrimSpace(raw))) == PolicyUnconditional {
		return PolicyUnconditional
	}
	return PolicyPendingOnly
}

// DoctorDirectory is the read side of the doctor directory used by the ledger.
type DoctorDirectory interface {
	Get(ctx context.Context, id string) (*doctors.Doctor, error)
	Summary(ctx context.Context, id string) (*doctors.Summary, error)
}

// Notifier emits the notices that accompany ledger transitions.
type Notifier interface {
	AppointmentBooked(ctx context.Context, evt notifications.AppointmentEvent) (*notifications.Notification, error)
	AppointmentCancelled(ctx context.Context, evt notifications.AppointmentEvent) (*notifications.Notification, error)
	AppointmentConfirmed(ctx context.Context, evt notifications.AppointmentEvent) (*notifications.Notification, error)
}

// LedgerConfig tunes the ledger.
type LedgerConfig struct {
	ConfirmationDelay time.Duration
	Policy            ConfirmPolicy
	Metrics           *metrics.BookingMetrics
	Clock             func() time.Time
}

type confirmPayload struct {
	AppointmentID string `json:"appointmentId"`
	Token         string `json:"token"`
}

// Ledger records bookings against doctor slots and drives their status.
type Ledger struct {
	repo      Repository
	directory DoctorDirectory
	slots     doctors.SlotBook
	notifier  Notifier
	scheduler scheduler.Scheduler
	validate  *validator.Validate
	delay     time.Duration
	policy    ConfirmPolicy
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// NewLedger wires the ledger and registers its confirmation job handler on
// sched.
func NewLedger(repo Repository, directory DoctorDirectory, slots doctors.SlotBook, notifier Notifier, sched scheduler.Scheduler, cfg LedgerConfig, logger *logging.Logger) *Ledger {
	if repo == nil || directory == nil || slots == nil || notifier == nil || sched == nil {
		panic("appointments: ledger dependencies required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ConfirmationDelay <= 0 {
		cfg.ConfirmationDelay = DefaultConfirmationDelay
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyPendingOnly
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	l := &Ledger{
		repo:      repo,
		directory: directory,
		slots:     slots,
		notifier:  notifier,
		scheduler: sched,
		validate:  validator.New(),
		delay:     cfg.ConfirmationDelay,
		policy:    cfg.Policy,
		metrics:   cfg.Metrics,
		logger:    logger,
		now:       cfg.Clock,
	}
	sched.Handle(JobConfirm, l.handleConfirmJob)
	return l
}

// Book claims the requested slot for patient and records a pending
// appointment. When a later step fails the appointment is cancelled and the
// slot released before the error is returned.
func (l *Ledger) Book(ctx context.Context, patient identity.User, req BookRequest) (*Appointment, error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("docbook.doctor_id", req.DoctorID),
		attribute.String("docbook.slot", req.Date+" "+req.Time),
	)

	if err := l.validate.Struct(req); err != nil {
		l.metrics.ObserveBooking("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	doctor, err := l.directory.Get(ctx, req.DoctorID)
	if err != nil {
		l.metrics.ObserveBooking("doctor_not_found")
		span.RecordError(err)
		return nil, err
	}

	if err := l.slots.ClaimSlot(ctx, doctor.ID, req.Date, req.Time); err != nil {
		if errors.Is(err, doctors.ErrSlotUnavailable) {
			l.metrics.ObserveBooking("slot_unavailable")
		} else {
			l.metrics.ObserveBooking("error")
		}
		span.RecordError(err)
		return nil, err
	}

	now := l.now().UTC()
	appt := &Appointment{
		ID:            uuid.NewString(),
		PatientID:     patient.ID,
		PatientEmail:  patient.Email,
		DoctorID:      doctor.ID,
		Date:          req.Date,
		Time:          req.Time,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Fee:           doctor.Fee,
		Symptoms:      req.Symptoms,
		ConfirmToken:  uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	span.SetAttributes(attribute.String("docbook.appointment_id", appt.ID))

	if err := l.repo.Insert(ctx, appt); err != nil {
		l.releaseSlot(ctx, appt)
		l.metrics.ObserveBooking("error")
		span.RecordError(err)
		return nil, err
	}

	if _, err := l.notifier.AppointmentBooked(ctx, l.event(appt, doctor.Name)); err != nil {
		l.compensate(ctx, appt)
		l.metrics.ObserveBooking("error")
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: notify booking: %w", err)
	}

	job, err := scheduler.NewJob(appt.ConfirmToken, JobConfirm, now.Add(l.delay), confirmPayload{
		AppointmentID: appt.ID,
		Token:         appt.ConfirmToken,
	})
	if err == nil {
		err = l.scheduler.Schedule(ctx, job)
	}
	if err != nil {
		l.compensate(ctx, appt)
		l.metrics.ObserveBooking("error")
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: schedule confirmation: %w", err)
	}

	l.metrics.ObserveBooking("booked")
	l.logger.Info("appointment booked",
		"appointment_id", appt.ID, "patient_id", appt.PatientID, "doctor_id", appt.DoctorID,
		"date", appt.Date, "time", appt.Time)
	return appt, nil
}

// Cancel cancels the requester's appointment, releases its slot and drops the
// pending confirmation job. An appointment already in a terminal status keeps
// its slot untouched; a repeated cancel only re-emits the cancellation notice.
func (l *Ledger) Cancel(ctx context.Context, requesterID, appointmentID string) (*Appointment, error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("docbook.appointment_id", appointmentID))

	appt, err := l.repo.Get(ctx, appointmentID)
	if err != nil {
		l.metrics.ObserveCancellation("not_found")
		return nil, err
	}
	if appt.PatientID != requesterID {
		l.metrics.ObserveCancellation("unauthorized")
		return nil, ErrUnauthorized
	}

	if appt.Status.Terminal() {
		if appt.Status == StatusCancelled {
			if _, err := l.notifier.AppointmentCancelled(ctx, l.event(appt, "")); err != nil {
				l.metrics.ObserveCancellation("error")
				span.RecordError(err)
				return nil, fmt.Errorf("appointments: notify cancellation: %w", err)
			}
		}
		l.metrics.ObserveCancellation("repeated")
		l.logger.Info("cancel of terminal appointment", "appointment_id", appt.ID, "status", string(appt.Status))
		return appt, nil
	}

	token := appt.ConfirmToken
	appt.Status = StatusCancelled
	appt.ConfirmToken = ""
	appt.UpdatedAt = l.now().UTC()
	if err := l.repo.Update(ctx, appt); err != nil {
		l.metrics.ObserveCancellation("error")
		span.RecordError(err)
		return nil, err
	}

	// Under PolicyUnconditional the confirmation job stays armed.
	if l.policy == PolicyPendingOnly && token != "" {
		if err := l.scheduler.Cancel(ctx, token); err != nil {
			l.logger.Warn("failed to cancel confirmation job", "appointment_id", appt.ID, "error", err)
		}
	}

	if err := l.slots.ReleaseSlot(ctx, appt.DoctorID, appt.Date, appt.Time); err != nil {
		l.metrics.ObserveCancellation("error")
		span.RecordError(err)
		return nil, err
	}

	if _, err := l.notifier.AppointmentCancelled(ctx, l.event(appt, "")); err != nil {
		l.metrics.ObserveCancellation("error")
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: notify cancellation: %w", err)
	}

	l.metrics.ObserveCancellation("cancelled")
	l.logger.Info("appointment cancelled", "appointment_id", appt.ID, "patient_id", appt.PatientID)
	return appt, nil
}

// Confirm is the deferred confirmation transition. A missing appointment is
// ignored. Under PolicyPendingOnly only a pending appointment holding token is
// confirmed; anything else is a no-op.
func (l *Ledger) Confirm(ctx context.Context, appointmentID, token string) error {
	ctx, span := ledgerTracer.Start(ctx, "appointments.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("docbook.appointment_id", appointmentID),
		attribute.String("docbook.confirm_policy", string(l.policy)),
	)

	appt, err := l.repo.Get(ctx, appointmentID)
	if errors.Is(err, ErrAppointmentNotFound) {
		l.metrics.ObserveConfirmation("missing")
		l.logger.Warn("confirmation for unknown appointment", "appointment_id", appointmentID)
		return nil
	}
	if err != nil {
		l.metrics.ObserveConfirmation("error")
		return err
	}

	if l.policy == PolicyPendingOnly {
		if appt.Status != StatusPending || appt.ConfirmToken == "" || appt.ConfirmToken != token {
			l.metrics.ObserveConfirmation("skipped")
			l.logger.Info("confirmation skipped", "appointment_id", appt.ID, "status", string(appt.Status))
			return nil
		}
	}

	appt.Status = StatusConfirmed
	appt.ConfirmToken = ""
	appt.UpdatedAt = l.now().UTC()
	if err := l.repo.Update(ctx, appt); err != nil {
		l.metrics.ObserveConfirmation("error")
		span.RecordError(err)
		return err
	}
	if _, err := l.notifier.AppointmentConfirmed(ctx, l.event(appt, "")); err != nil {
		l.metrics.ObserveConfirmation("error")
		span.RecordError(err)
		return fmt.Errorf("appointments: notify confirmation: %w", err)
	}

	l.metrics.ObserveConfirmation("confirmed")
	l.logger.Info("appointment confirmed", "appointment_id", appt.ID)
	return nil
}

// ListForPatient returns the patient's appointments newest first, each with
// its doctor summary.
func (l *Ledger) ListForPatient(ctx context.Context, patientID string) ([]Listing, error) {
	appts, err := l.repo.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	summaries := make(map[string]*doctors.Summary)
	out := make([]Listing, 0, len(appts))
	for _, appt := range appts {
		summary, ok := summaries[appt.DoctorID]
		if !ok {
			summary, err = l.directory.Summary(ctx, appt.DoctorID)
			if err != nil {
				return nil, err
			}
			summaries[appt.DoctorID] = summary
		}
		out = append(out, Listing{Appointment: appt, Doctor: summary})
	}
	return out, nil
}

// CountForPatient returns how many appointments the patient has, in any status.
func (l *Ledger) CountForPatient(ctx context.Context, patientID string) (int, error) {
	return l.repo.CountForPatient(ctx, patientID)
}

func (l *Ledger) handleConfirmJob(ctx context.Context, job scheduler.Job) error {
	var payload confirmPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("appointments: decode confirm job: %w", err)
	}
	return l.Confirm(ctx, payload.AppointmentID, payload.Token)
}

func (l *Ledger) event(appt *Appointment, doctorName string) notifications.AppointmentEvent {
	return notifications.AppointmentEvent{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		PatientEmail:  appt.PatientEmail,
		DoctorName:    doctorName,
		Date:          appt.Date,
		Time:          appt.Time,
	}
}

// compensate undoes a booking whose appointment row already exists.
func (l *Ledger) compensate(ctx context.Context, appt *Appointment) {
	ctx = context.WithoutCancel(ctx)
	appt.Status = StatusCancelled
	appt.ConfirmToken = ""
	appt.UpdatedAt = l.now().UTC()
	if err := l.repo.Update(ctx, appt); err != nil {
		l.logger.Error("failed to cancel uncompleted booking", "appointment_id", appt.ID, "error", err)
	}
	l.releaseSlot(ctx, appt)
}

func (l *Ledger) releaseSlot(ctx context.Context, appt *Appointment) {
	if err := l.slots.ReleaseSlot(context.WithoutCancel(ctx), appt.DoctorID, appt.Date, appt.Time); err != nil {
		l.logger.Error("failed to release slot", "doctor_id", appt.DoctorID, "date", appt.Date, "time", appt.Time, "error", err)
	}
}
