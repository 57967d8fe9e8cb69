package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/docbook-ai/internal/observability/metrics"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

var notificationsTracer = otel.Tracer("docbook.internal.notifications")

// EventNotification is the realtime event kind carrying a new notification.
const EventNotification = "notification"

// Publisher pushes events to a user's live connections.
type Publisher interface {
	Publish(userID, kind string, payload any)
}

// Service appends notifications and fans them out to side channels. The
// append is the only step whose failure is reported to callers.
type Service struct {
	repo      Repository
	publisher Publisher
	email     EmailSender
	metrics   *metrics.NotificationMetrics
	logger    *logging.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher enables realtime push of new notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithEmail mirrors notifications to patients that have an email address.
func WithEmail(sender EmailSender) Option {
	return func(s *Service) { s.email = sender }
}

// WithMetrics records emitted notifications.
func WithMetrics(m *metrics.NotificationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the notification fan-out.
func NewService(repo Repository, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("notifications: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppointmentBooked notifies the patient that a booking was recorded. A
// leading "Dr." on the stored name is dropped so the message reads
// "Dr. Sarah Johnson" rather than "Dr. Dr. Sarah Johnson".
func (s *Service) AppointmentBooked(ctx context.Context, evt AppointmentEvent) (*Notification, error) {
	return s.emit(ctx, evt, TypeAppointmentConfirmed, "Appointment Booked",
		fmt.Sprintf("Your appointment with Dr. %s has been booked for %s at %s", doctorName(evt.DoctorName), evt.Date, evt.Time))
}

// AppointmentCancelled notifies the patient that the appointment was cancelled.
func (s *Service) AppointmentCancelled(ctx context.Context, evt AppointmentEvent) (*Notification, error) {
	return s.emit(ctx, evt, TypeAppointmentCancelled, "Appointment Cancelled",
		fmt.Sprintf("Your appointment for %s at %s has been cancelled", evt.Date, evt.Time))
}

// AppointmentConfirmed notifies the patient that the appointment is confirmed.
func (s *Service) AppointmentConfirmed(ctx context.Context, evt AppointmentEvent) (*Notification, error) {
	return s.emit(ctx, evt, TypeAppointmentConfirmed, "Appointment Confirmed",
		"Your appointment has been confirmed by the doctor")
}

func (s *Service) emit(ctx context.Context, evt AppointmentEvent, typ Type, title, message string) (*Notification, error) {
	ctx, span := notificationsTracer.Start(ctx, "notifications.emit")
	defer span.End()
	span.SetAttributes(
		attribute.String("docbook.notification_type", string(typ)),
		attribute.String("docbook.appointment_id", evt.AppointmentID),
	)

	n := &Notification{
		ID:            uuid.NewString(),
		UserID:        evt.PatientID,
		Type:          typ,
		Title:         title,
		Message:       message,
		AppointmentID: evt.AppointmentID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveEmitted(string(typ))

	if s.publisher != nil {
		s.publisher.Publish(n.UserID, EventNotification, n)
	}
	if s.email != nil && evt.PatientEmail != "" {
		if err := s.email.Send(ctx, EmailMessage{To: evt.PatientEmail, Subject: title, Body: message}); err != nil {
			s.metrics.ObserveSideChannelFailure("email")
			s.logger.Warn("notification email failed", "notification_id", n.ID, "error", err)
		}
	}
	return n, nil
}

// List returns the user's notifications newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// MarkRead marks one of the user's notifications read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead marks every notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// doctorName strips an honorific already present in the stored name so the
// message does not read "Dr. Dr. ...".
func doctorName(name string) string {
	name = strings.TrimSpace(name)
	if trimmed := strings.TrimPrefix(name, "Dr. "); trimmed != name {
		return strings.TrimSpace(trimmed)
	}
	return name
}
