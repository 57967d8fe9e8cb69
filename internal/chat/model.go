package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Message is one entry of a user's chat thread.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	IsAI      bool      `json:"isAI"`
	Context   *Context  `json:"context,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContextType tags what the user was doing when the message was sent.
type ContextType string

const (
	ContextBooking         ContextType = "booking"
	ContextDoctorSearch    ContextType = "doctor_search"
	ContextAppointmentInfo ContextType = "appointment_info"
	ContextGeneral         ContextType = "general"
)

// Valid reports whether t is a known context type.
func (t ContextType) Valid() bool {
	switch t {
	case ContextBooking, ContextDoctorSearch, ContextAppointmentInfo, ContextGeneral:
		return true
	}
	return false
}

// BookingContext is the payload of a booking context.
type BookingContext struct {
	DoctorID string `json:"doctorId,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
}

// DoctorSearchContext is the payload of a doctor search context.
type DoctorSearchContext struct {
	Specialization string `json:"specialization,omitempty"`
	Search         string `json:"search,omitempty"`
}

// AppointmentInfoContext is the payload of an appointment info context.
type AppointmentInfoContext struct {
	AppointmentID string `json:"appointmentId,omitempty"`
}

// Context is a tagged union. At most the payload field matching Type is set;
// general carries no payload. On the wire it is {"type": ..., "data": ...}.
type Context struct {
	Type            ContextType
	Booking         *BookingContext
	DoctorSearch    *DoctorSearchContext
	AppointmentInfo *AppointmentInfoContext
}

// TypeOf returns the context type, defaulting to general for a nil context.
func TypeOf(c *Context) ContextType {
	if c == nil || c.Type == "" {
		return ContextGeneral
	}
	return c.Type
}

type wireContext struct {
	Type ContextType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (c Context) MarshalJSON() ([]byte, error) {
	var data any
	switch c.Type {
	case ContextBooking:
		if c.Booking != nil {
			data = c.Booking
		}
	case ContextDoctorSearch:
		if c.DoctorSearch != nil {
			data = c.DoctorSearch
		}
	case ContextAppointmentInfo:
		if c.AppointmentInfo != nil {
			data = c.AppointmentInfo
		}
	case ContextGeneral, "":
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidContext, c.Type)
	}

	wire := wireContext{Type: TypeOf(&c)}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		wire.Data = raw
	}
	return json.Marshal(wire)
}

func (c *Context) UnmarshalJSON(b []byte) error {
	var wire wireContext
	if err := json.Unmarshal(b, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if !wire.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidContext, wire.Type)
	}

	*c = Context{Type: wire.Type}
	data := bytes.TrimSpace(wire.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var target any
	switch wire.Type {
	case ContextBooking:
		c.Booking = &BookingContext{}
		target = c.Booking
	case ContextDoctorSearch:
		c.DoctorSearch = &DoctorSearchContext{}
		target = c.DoctorSearch
	case ContextAppointmentInfo:
		c.AppointmentInfo = &AppointmentInfoContext{}
		target = c.AppointmentInfo
	case ContextGeneral:
		return fmt.Errorf("%w: general context takes no data", ErrInvalidContext)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrInvalidContext, wire.Type, err)
	}
	return nil
}
