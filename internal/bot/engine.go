// Package bot is the transport-facing engine: it dispatches inbound events to
// the booking session machine, the view/cancel lookup flows and the approval
// coordinator, and emits prompts and notifications back through the intent
// port.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/facility-booking-bot/internal/approval"
	"github.com/nekogravitycat/facility-booking-bot/internal/directory"
	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
	"github.com/nekogravitycat/facility-booking-bot/internal/session"
	"github.com/nekogravitycat/facility-booking-bot/internal/validate"
)

type Engine struct {
	sessions     *session.Manager
	machine      *session.Machine
	reservations reservation.Service
	approvals    *approval.Coordinator
	dir          *directory.Directory
	notifier     intent.Notifier
	emails       *validate.EmailChecker
	log          *logrus.Entry

	mu      sync.Mutex
	lookups map[int64]*lookup
}

func NewEngine(
	sessions *session.Manager,
	machine *session.Machine,
	reservations reservation.Service,
	approvals *approval.Coordinator,
	dir *directory.Directory,
	notifier intent.Notifier,
	emails *validate.EmailChecker,
	log *logrus.Entry,
) *Engine {
	return &Engine{
		sessions:     sessions,
		machine:      machine,
		reservations: reservations,
		approvals:    approvals,
		dir:          dir,
		notifier:     notifier,
		emails:       emails,
		log:          log,
		lookups:      make(map[int64]*lookup),
	}
}

// HandleEvent processes one inbound event. Events are delivered one at a time
// per conversation by the transport; different users' events may run
// concurrently.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) {
	if !e.dir.IsAllowed(ev.UserID) {
		e.log.WithField("user_id", ev.UserID).Warn("unauthorized access denied")
		e.send(ctx, ev.UserID, "You are not authorized to use this bot.")
		return
	}

	if ev.Kind == KindDecision {
		e.handleDecision(ctx, ev)
		return
	}

	text := strings.TrimSpace(ev.Text)
	lower := strings.ToLower(text)

	switch {
	case lower == "/start":
		e.reset(ev.UserID)
		e.promptMenu(ctx, ev.UserID)

	case strings.Contains(lower, "new booking") || strings.Contains(lower, "/new_booking"):
		e.reset(ev.UserID)
		e.sessions.Begin(ev.UserID)
		e.prompt(ctx, ev.UserID, session.FirstPrompt())

	case strings.Contains(lower, "view booking") || strings.Contains(lower, "/view_booking"):
		e.reset(ev.UserID)
		e.beginLookup(ev.UserID, flowView)
		e.send(ctx, ev.UserID, "Please enter your email to view your booking")

	case strings.Contains(lower, "cancel booking") || strings.Contains(lower, "/cancel_booking"):
		e.reset(ev.UserID)
		e.beginLookup(ev.UserID, flowCancel)
		e.send(ctx, ev.UserID, "Please enter your email to view and cancel your bookings")

	case lower == "/help":
		e.send(ctx, ev.UserID,
			"I can help you reserve shared facilities.\n\n"+
				"Use /new_booking to request a slot, /view_booking to list your "+
				"reservations and /cancel_booking to release one. A booking "+
				"request is confirmed once an administrator approves it.")

	case lower == "/about":
		e.send(ctx, ev.UserID,
			"Facility booking bot. Reservations are checked against existing "+
				"bookings and require administrator approval.")

	case lower == "/end":
		e.reset(ev.UserID)
		e.send(ctx, ev.UserID,
			"Ending previous command...\nAnything else I can do for you?\n\nPlease type /start to start again.")

	default:
		if lk, ok := e.getLookup(ev.UserID); ok {
			e.handleLookup(ctx, ev.UserID, lk, text)
			return
		}
		if s, ok := e.sessions.Get(ev.UserID); ok {
			e.handleSessionInput(ctx, s, text)
			return
		}
		e.promptMenu(ctx, ev.UserID)
	}
}

func (e *Engine) handleSessionInput(ctx context.Context, s *session.Session, text string) {
	res := e.machine.Input(ctx, s, text)

	switch {
	case res.Cancelled:
		e.sessions.End(s.UserID)
		e.send(ctx, s.UserID, "Booking cancelled.")
		e.promptMenu(ctx, s.UserID)

	case res.Finalized != nil:
		// The session terminates here no matter how the approval ends;
		// approval progress is tracked by the coordinator, not the session.
		e.sessions.End(s.UserID)
		e.finalize(ctx, res.Finalized)

	case res.Prompt != nil:
		e.prompt(ctx, s.UserID, res.Prompt)
	}
}

func (e *Engine) finalize(ctx context.Context, r *reservation.Reservation) {
	committed, err := e.approvals.Submit(ctx, r)
	if err != nil {
		var conflict *reservation.ConflictError
		if errors.As(err, &conflict) {
			e.send(ctx, r.OwnerUserID,
				conflict.Error()+". Please select another time slot and make a new booking.")
		} else {
			e.log.WithError(err).WithField("reservation_id", r.ID).Error("booking submission failed")
			e.send(ctx, r.OwnerUserID,
				"Something went wrong while saving your booking. Please try again later.")
		}
		e.promptMenu(ctx, r.OwnerUserID)
		return
	}

	if committed {
		e.send(ctx, r.OwnerUserID, "Booking successful!\n\n"+r.Summary())
	} else {
		e.send(ctx, r.OwnerUserID,
			"Your booking request has been submitted for approval. "+
				"You will be notified once an administrator decides.")
	}
	e.promptMenu(ctx, r.OwnerUserID)
}

func (e *Engine) handleDecision(ctx context.Context, ev Event) {
	if ev.Decision == nil {
		return
	}
	if !e.dir.IsAdmin(ev.UserID) {
		e.log.WithField("user_id", ev.UserID).Warn("decision from non-administrator ignored")
		return
	}
	err := e.approvals.Decide(ctx, ev.UserID, ev.Decision.ReservationID, ev.Decision.Decision)
	if errors.Is(err, approval.ErrStaleDecision) {
		// Another administrator was faster; the amended notification already
		// tells this one the outcome.
		return
	}
	if err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"admin_id":       ev.UserID,
			"reservation_id": ev.Decision.ReservationID,
		}).Error("decision handling failed")
	}
}

func (e *Engine) promptMenu(ctx context.Context, userID int64) {
	e.prompt(ctx, userID, &intent.Prompt{
		Text: "What would you like to do?",
		Choices: [][]string{
			{"New Booking"},
			{"View Booking"},
			{"Cancel Booking"},
		},
	})
}

func (e *Engine) prompt(ctx context.Context, userID int64, p *intent.Prompt) {
	if err := e.notifier.Prompt(ctx, userID, *p); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Error("prompt delivery failed")
	}
}

func (e *Engine) send(ctx context.Context, userID int64, text string) {
	if _, err := e.notifier.Notify(ctx, userID, text, nil); err != nil {
		e.log.WithError(err).WithField("user_id", userID).Error("message delivery failed")
	}
}

// reset drops any in-progress conversation state for the user. A cancel signal
// is honored unconditionally; a validation result still in flight for a
// discarded session is never acted upon because the session is gone.
func (e *Engine) reset(userID int64) {
	e.sessions.End(userID)
	e.mu.Lock()
	delete(e.lookups, userID)
	e.mu.Unlock()
}

func (e *Engine) fmtReservation(r *reservation.Reservation) string {
	return fmt.Sprintf(
		"Facility: %s\nDate: %s\nStart Time: %s\nEnd Time: %s\nEmail: %s\nName: %s\nContact Number: %s",
		r.Facility, r.DisplayDate(), r.StartTime, r.EndTime, r.Email, r.Name, r.ContactNumber)
}
