package appointments

import (
	"errors"

	"github.com/wolfman30/docbook-ai/internal/doctors"
)

var (
	// ErrAppointmentNotFound is returned when no appointment has the id.
	ErrAppointmentNotFound = errors.New("appointments: appointment not found")

	// ErrUnauthorized is returned when a patient acts on someone else's appointment.
	ErrUnauthorized = errors.New("appointments: appointment belongs to another patient")

	// ErrInvalidRequest wraps booking payload validation failures.
	ErrInvalidRequest = errors.New("appointments: invalid request")

	// ErrSlotUnavailable is returned when the requested slot is not free.
	ErrSlotUnavailable = doctors.ErrSlotUnavailable
)
