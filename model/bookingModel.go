// model/booking.go
package model

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingPickedUp  BookingStatus = "picked_up"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type Booking struct {
	ID          int64         `json:"id"`
	Code        string        `json:"code"`
	UserID      int64         `json:"user_id"`
	PackageID   int64         `json:"package_id"`
	PickupDate  time.Time     `json:"pickup_date"`
	ReturnDate  time.Time     `json:"return_date"`
	PickupTime  string        `json:"pickup_time,omitempty"` // HH:MM
	ReturnTime  string        `json:"return_time,omitempty"`
	Status      BookingStatus `json:"status"`
	TotalPrice  int64         `json:"total_price"` // minor currency units
	Location    *string       `json:"location,omitempty"`
	Notes       *string       `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
}

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

// RentalDays counts calendar days in [pickup, return], inclusive.
func RentalDays(pickup, ret time.Time) int {
	d := int(ret.Sub(pickup).Hours()/24) + 1
	if d < 1 {
		d = 1
	}
	return d
}
