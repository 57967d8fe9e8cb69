package notifications

import "time"

// Type tags what caused a notification.
type Type string

const (
	TypeAppointmentConfirmed Type = "appointment_confirmed"
	TypeAppointmentCancelled Type = "appointment_cancelled"
	TypeAppointmentReminder  Type = "appointment_reminder"
	TypeDoctorAssigned       Type = "doctor_assigned"
)

// Notification is a human-readable notice addressed to one user.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Type          Type      `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	IsRead        bool      `json:"isRead"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AppointmentEvent carries what the ledger knows about an appointment when it
// changes state.
type AppointmentEvent struct {
	AppointmentID string
	PatientID     string
	PatientEmail  string
	DoctorName    string
	Date          string
	Time          string
}
