package doctors

import "time"

// Address is a doctor's practice address.
type Address struct {
	Line1   string `json:"line1" bson:"line1" validate:"required"`
	Line2   string `json:"line2,omitempty" bson:"line2,omitempty"`
	City    string `json:"city" bson:"city" validate:"required"`
	State   string `json:"state" bson:"state" validate:"required"`
	ZipCode string `json:"zipCode" bson:"zipCode" validate:"required"`
}

// Slot is a bookable (date, time) unit of a doctor's calendar. Date is
// YYYY-MM-DD and Time is HH:MM, both in UTC.
type Slot struct {
	Date     string `json:"date" bson:"date"`
	Time     string `json:"time" bson:"time"`
	IsBooked bool   `json:"isBooked" bson:"isBooked"`
}

// Doctor is a doctor profile together with its slot calendar. List results
// leave Slots empty; use Get or AvailableSlots for the calendar.
type Doctor struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Email          string    `json:"email" bson:"email"`
	Phone          string    `json:"phone" bson:"phone"`
	Specialization string    `json:"specialization" bson:"specialization"`
	Experience     int       `json:"experience" bson:"experience"`
	Education      string    `json:"education" bson:"education"`
	About          string    `json:"about" bson:"about"`
	Fee            float64   `json:"fee" bson:"fee"`
	Address        Address   `json:"address" bson:"address"`
	IsAvailable    bool      `json:"isAvailable" bson:"isAvailable"`
	ImageKey       string    `json:"imageKey,omitempty" bson:"imageKey,omitempty"`
	ImageURL       *string   `json:"imageUrl" bson:"-"`
	Slots          []Slot    `json:"slots,omitempty" bson:"slots"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
}

// Summary is the doctor view embedded in appointment listings.
type Summary struct {
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	ImageURL       *string `json:"imageUrl"`
}

// Profile is the payload accepted when registering a doctor.
type Profile struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Phone          string  `json:"phone" validate:"required"`
	Specialization string  `json:"specialization" validate:"required"`
	Experience     int     `json:"experience" validate:"gte=0"`
	Education      string  `json:"education" validate:"required"`
	About          string  `json:"about"`
	Fee            float64 `json:"fee" validate:"gte=0"`
	Address        Address `json:"address"`
	ImageKey       string  `json:"imageKey,omitempty"`
}

// ListFilter narrows a doctor listing. Search takes precedence over
// Specialization.
type ListFilter struct {
	Specialization string
	Search         string
}
