package appointments

import (
	"time"

	"github.com/wolfman30/docbook-ai/internal/doctors"
)

// Status is the ledger state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// PaymentStatus tracks the fee captured at booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment is a patient's booking of one doctor slot. Date and Time are
// copied from the slot when booked.
type Appointment struct {
	ID            string        `json:"id"`
	PatientID     string        `json:"patientId"`
	PatientEmail  string        `json:"-"`
	DoctorID      string        `json:"doctorId"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Fee           float64       `json:"fee"`
	Symptoms      string        `json:"symptoms,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	ConfirmToken  string        `json:"-"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// BookRequest is the payload of a booking. Date and Time are not validated
// here: a malformed or empty value matches no slot and fails the claim.
type BookRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Symptoms string `json:"symptoms,omitempty" validate:"max=2000"`
}

// Listing is an appointment as shown to its patient, with the doctor summary
// when the doctor still exists.
type Listing struct {
	*Appointment
	Doctor *doctors.Summary `json:"doctor"`
}
