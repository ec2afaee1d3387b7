package reservation

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/facility-booking-bot/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "reservation not found")
	ErrSlotConflict     = apperror.New(http.StatusConflict, "time slot already booked")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "end time must be after start time")
	ErrStoreUnavailable = apperror.New(http.StatusBadGateway, "booking store unavailable")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCommitted Status = "committed"
)

const (
	// DateLayout is the stored date format (MM/DD/YYYY, external row schema).
	DateLayout = "01/02/2006"
	// DisplayDateLayout is the format shown to users (DD/MM/YYYY).
	DisplayDateLayout = "02/01/2006"
)

// Reservation is a candidate or committed booking of a facility for a time
// window on a calendar day. Times are zero-padded HH:MM strings, so their
// lexicographic order is their chronological order.
type Reservation struct {
	ID            string
	Facility      string
	Date          string // MM/DD/YYYY
	StartTime     string // HH:MM
	EndTime       string // HH:MM
	Email         string
	Name          string
	ContactNumber string
	OwnerUserID   int64
	Status        Status
}

// Key identifies a stored row for deletion. The store is matched on this field
// tuple rather than the id, since tabular backends the gateway fronts may have
// no primary-key delete. Committed rows are unique per tuple because of the
// overlap invariant.
type Key struct {
	Facility  string
	Date      string
	StartTime string
	EndTime   string
	Email     string
}

// TimePeriod returns the combined "HH:MM-HH:MM" window.
func (r *Reservation) TimePeriod() string {
	return r.StartTime + "-" + r.EndTime
}

// Key returns the row-matching tuple for this reservation.
func (r *Reservation) Key() Key {
	return Key{
		Facility:  r.Facility,
		Date:      r.Date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Email:     r.Email,
	}
}

// DisplayDate returns the date in DD/MM/YYYY form.
func (r *Reservation) DisplayDate() string {
	t, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return r.Date
	}
	return t.Format(DisplayDateLayout)
}

// Summary renders the booking details block shown at confirmation and in
// notifications.
func (r *Reservation) Summary() string {
	date := r.Date
	if t, err := time.Parse(DateLayout, r.Date); err == nil {
		date = fmt.Sprintf("%s (%s)", t.Format(DisplayDateLayout), t.Format("Monday"))
	}
	return fmt.Sprintf(
		"Booking details:\n"+
			"================\n"+
			"Facility: %s\n"+
			"Date: %s\n"+
			"Start time: %s\n"+
			"End time: %s\n"+
			"Email: %s\n"+
			"Name: %s\n"+
			"Contact Number: %s",
		r.Facility, date, r.StartTime, r.EndTime, r.Email, r.Name, r.ContactNumber,
	)
}

// ConflictError reports the committed reservation holding a requested slot.
type ConflictError struct {
	Blocking *Reservation
}

func (e *ConflictError) Error() string {
	b := e.Blocking
	return fmt.Sprintf("%s has been already booked by %s on %s, from %s to %s",
		b.Facility, b.Name, b.DisplayDate(), b.StartTime, b.EndTime)
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotConflict
}
