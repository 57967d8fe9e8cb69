package doctors

import "errors"

var (
	// ErrDoctorNotFound is returned when no doctor has the requested id.
	ErrDoctorNotFound = errors.New("doctors: doctor not found")

	// ErrSlotUnavailable is returned when no unbooked slot matches the
	// requested date and time.
	ErrSlotUnavailable = errors.New("doctors: slot unavailable")

	// ErrInvalidProfile wraps validation failures of a doctor profile.
	ErrInvalidProfile = errors.New("doctors: invalid profile")
)

// ErrDuplicateSlot is returned when a calendar repeats a (date, time) pair.
var ErrDuplicateSlot = errors.New("doctors: duplicate slot")
