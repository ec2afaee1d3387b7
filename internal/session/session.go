// Package session implements the booking conversation state machine. A session
// collects one reservation field per step; invalid input re-issues the same
// prompt with an error annotation, and a slot conflict sends the conversation
// back to date selection.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/facility-booking-bot/internal/facility"
	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
	"github.com/nekogravitycat/facility-booking-bot/internal/validate"
)

type Step int

const (
	StepFacility Step = iota
	StepDate
	StepStartTime
	StepEndTime
	StepEmail
	StepName
	StepContact
	StepConfirm
)

// Session is the per-user booking conversation. It has exactly one owner and
// at most one live instance per user; it is never shared across users.
type Session struct {
	UserID int64
	Step   Step
	Draft  reservation.Reservation
}

// Result is the outcome of feeding one input to a session. Exactly one of the
// three holds: a Prompt to re-issue or advance with, a Finalized reservation
// (status Pending, session terminated), or Cancelled.
type Result struct {
	Prompt    *intent.Prompt
	Finalized *reservation.Reservation
	Cancelled bool
}

// Machine drives session transitions. It consults the reservation snapshot for
// mid-flow conflict checks and the email checker for address validation.
type Machine struct {
	reservations reservation.Service
	emails       *validate.EmailChecker
	now          func() time.Time
}

func NewMachine(reservations reservation.Service, emails *validate.EmailChecker, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		reservations: reservations,
		emails:       emails,
		now:          now,
	}
}

// FirstPrompt is the opening question of a fresh session.
func FirstPrompt() *intent.Prompt {
	return &intent.Prompt{
		Text:    "Which facility would you like to book?",
		Choices: facility.KeyboardRows(),
	}
}

// Input feeds one user message to the session and returns the transition
// outcome. The session does not advance on validation failure.
func (m *Machine) Input(ctx context.Context, s *Session, text string) Result {
	text = strings.TrimSpace(text)

	switch s.Step {
	case StepFacility:
		return m.inputFacility(s, text)
	case StepDate:
		return m.inputDate(s, text)
	case StepStartTime:
		return m.inputStartTime(s, text)
	case StepEndTime:
		return m.inputEndTime(s, text)
	case StepEmail:
		return m.inputEmail(ctx, s, text)
	case StepName:
		return m.inputName(s, text)
	case StepContact:
		return m.inputContact(s, text)
	case StepConfirm:
		return m.inputConfirm(s, text)
	default:
		return prompt(FirstPrompt())
	}
}

func (m *Machine) inputFacility(s *Session, text string) Result {
	if !facility.IsValid(text) {
		return prompt(&intent.Prompt{
			Text:    "Please choose one of the listed facilities.",
			Choices: facility.KeyboardRows(),
		})
	}
	s.Draft.Facility = text
	s.Step = StepDate
	return reply("Please enter the date of booking (DD/MM/YYYY)")
}

func (m *Machine) inputDate(s *Session, text string) Result {
	// Parse in the clock's location so today's date never lands before local
	// midnight in zones behind UTC.
	t, err := time.ParseInLocation(reservation.DisplayDateLayout, text, m.now().Location())
	if err != nil {
		return reply("Invalid date. Please enter the date of booking (DD/MM/YYYY)")
	}
	today := dateOnly(m.now())
	if t.Before(today) {
		return reply("The date cannot be in the past. Please enter the date of booking (DD/MM/YYYY)")
	}
	s.Draft.Date = t.Format(reservation.DateLayout)
	s.Step = StepStartTime
	return reply("Please enter the start time of booking (hhmm)")
}

func (m *Machine) inputStartTime(s *Session, text string) Result {
	start, err := validate.TimeOfDay(text)
	if err != nil {
		return reply("Invalid time format. Please enter the start time of booking (hhmm)")
	}
	// "Now" keeps advancing, so same-day starts are checked here, not at date
	// selection.
	now := m.now()
	if s.Draft.Date == now.Format(reservation.DateLayout) && start < now.Format("15:04") {
		return reply("The start time cannot be in the past. Please enter the start time of booking (hhmm)")
	}
	s.Draft.StartTime = start
	s.Step = StepEndTime
	return reply("Please enter the end time of booking (hhmm)")
}

func (m *Machine) inputEndTime(s *Session, text string) Result {
	end, err := validate.TimeOfDay(text)
	if err != nil {
		return reply("Invalid time format. Please enter the end time of booking (hhmm)")
	}
	if end <= s.Draft.StartTime {
		return reply("End time cannot be before the start time. Please re-enter the end time (hhmm)")
	}
	s.Draft.EndTime = end

	// Probe the snapshot right away so the user learns about a taken slot
	// before typing contact details. The authoritative check happens again at
	// commit time.
	if blocking := m.reservations.CheckSlot(&s.Draft); blocking != nil {
		s.Step = StepDate
		conflict := &reservation.ConflictError{Blocking: blocking}
		return reply(conflict.Error() +
			". Please select another time slot.\nPlease enter another date of booking (DD/MM/YYYY)")
	}

	s.Step = StepEmail
	return reply("Please enter your email")
}

func (m *Machine) inputEmail(ctx context.Context, s *Session, text string) Result {
	if err := m.emails.Check(ctx, text); err != nil {
		if errors.Is(err, validate.ErrInvalidEmail) {
			return reply("Invalid email. Please enter a valid email")
		}
		return reply("Could not verify your email right now. Please try again")
	}
	s.Draft.Email = text
	s.Step = StepName
	return reply("Please enter your name")
}

func (m *Machine) inputName(s *Session, text string) Result {
	if text == "" {
		return reply("Please enter your name")
	}
	s.Draft.Name = text
	s.Step = StepContact
	return reply("Please enter your contact number")
}

func (m *Machine) inputContact(s *Session, text string) Result {
	if err := validate.ContactNumber(text); err != nil {
		return reply("Invalid contact number. Please enter a valid contact number")
	}
	s.Draft.ContactNumber = text
	s.Step = StepConfirm
	return prompt(&intent.Prompt{
		Text:    s.Draft.Summary() + "\n\nConfirm booking?",
		Choices: [][]string{{"Yes", "No"}},
	})
}

func (m *Machine) inputConfirm(s *Session, text string) Result {
	switch strings.ToLower(text) {
	case "yes":
		r := s.Draft
		r.ID = uuid.NewString()
		r.OwnerUserID = s.UserID
		r.Status = reservation.StatusPending
		return Result{Finalized: &r}
	case "no":
		return Result{Cancelled: true}
	default:
		return prompt(&intent.Prompt{
			Text:    "Please answer Yes or No. Confirm booking?",
			Choices: [][]string{{"Yes", "No"}},
		})
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func prompt(p *intent.Prompt) Result {
	return Result{Prompt: p}
}

func reply(s string) Result {
	return Result{Prompt: &intent.Prompt{Text: s}}
}
