package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
)

type flowKind int

const (
	flowView flowKind = iota + 1
	flowCancel
)

type lookupStep int

const (
	lookupEmail lookupStep = iota
	lookupSelection
)

// lookup is the short-lived state of a view- or cancel-booking flow, keyed by
// the requester's email rather than a session draft.
type lookup struct {
	kind    flowKind
	step    lookupStep
	email   string
	options map[string]reservation.Key
	rows    [][]string
}

func (e *Engine) beginLookup(userID int64, kind flowKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lookups[userID] = &lookup{kind: kind}
}

func (e *Engine) getLookup(userID int64) (*lookup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.lookups[userID]
	return lk, ok
}

func (e *Engine) endLookup(userID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lookups, userID)
}

func (e *Engine) handleLookup(ctx context.Context, userID int64, lk *lookup, text string) {
	switch lk.step {
	case lookupEmail:
		e.lookupByEmail(ctx, userID, lk, text)
	case lookupSelection:
		e.cancelSelection(ctx, userID, lk, text)
	}
}

func (e *Engine) lookupByEmail(ctx context.Context, userID int64, lk *lookup, email string) {
	if err := e.emails.Check(ctx, email); err != nil {
		e.send(ctx, userID, "Invalid email. Please enter a valid email")
		return
	}

	bookings := e.reservations.ListByEmail(email)
	if len(bookings) == 0 {
		e.send(ctx, userID, "No bookings found for this email.")
		e.endLookup(userID)
		e.promptMenu(ctx, userID)
		return
	}

	if lk.kind == flowView {
		details := make([]string, 0, len(bookings))
		for _, r := range bookings {
			details = append(details, e.fmtReservation(r))
		}
		e.send(ctx, userID, "Your bookings:\n\n"+strings.Join(details, "\n\n"))
		e.endLookup(userID)
		e.promptMenu(ctx, userID)
		return
	}

	lk.email = email
	lk.step = lookupSelection
	lk.options = make(map[string]reservation.Key, len(bookings))
	lk.rows = nil
	for _, r := range bookings {
		label := fmt.Sprintf("Cancel %s on %s from %s to %s",
			r.Facility, r.DisplayDate(), r.StartTime, r.EndTime)
		lk.options[label] = r.Key()
		lk.rows = append(lk.rows, []string{label})
	}
	e.prompt(ctx, userID, &intent.Prompt{
		Text:    "Select a booking to cancel:",
		Choices: lk.rows,
	})
}

func (e *Engine) cancelSelection(ctx context.Context, userID int64, lk *lookup, text string) {
	key, ok := lk.options[text]
	if !ok {
		e.prompt(ctx, userID, &intent.Prompt{
			Text:    "Please select one of the listed bookings.",
			Choices: lk.rows,
		})
		return
	}

	err := e.reservations.Cancel(ctx, key)
	switch {
	case err == nil:
		e.send(ctx, userID, fmt.Sprintf("Booking for %s on %s from %s to %s has been cancelled.",
			key.Facility, displayDate(key.Date), key.StartTime, key.EndTime))
	default:
		e.log.WithError(err).WithField("user_id", userID).Warn("booking cancellation failed")
		e.send(ctx, userID, "Failed to cancel the booking. Please try again.")
	}

	e.endLookup(userID)
	e.promptMenu(ctx, userID)
}

func displayDate(stored string) string {
	r := reservation.Reservation{Date: stored}
	return r.DisplayDate()
}
