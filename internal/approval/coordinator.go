// Package approval coordinates the two-party decision protocol between a
// requesting user and the pool of administrators. Pending requests live in
// process memory only; a restart loses them, and the store stays the durable
// record of committed reservations.
package approval

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/facility-booking-bot/internal/directory"
	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
	"github.com/nekogravitycat/facility-booking-bot/internal/pkg/apperror"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
)

// ErrStaleDecision marks a decision on an unknown or already-processed
// request. It carries no user-visible consequence; callers absorb it.
var ErrStaleDecision = apperror.New(http.StatusConflict, "decision already processed")

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// request correlates a pending reservation with the administrators notified
// about it and, per administrator, the reference of the sent notification.
type request struct {
	reservation *reservation.Reservation
	notified    map[int64]string
	processed   bool

	// outcome is the final text shown to administrators, recorded at decision
	// time so deliveries that complete afterwards can still be amended.
	outcome string
}

// Coordinator fans a pending reservation out to every administrator and
// reconciles the first decision received. Exactly one request may exist per
// reservation id.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*request

	notifier     intent.Notifier
	dir          *directory.Directory
	reservations reservation.Service
	log          *logrus.Entry
}

func NewCoordinator(notifier intent.Notifier, dir *directory.Directory, reservations reservation.Service, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		pending:      make(map[string]*request),
		notifier:     notifier,
		dir:          dir,
		reservations: reservations,
		log:          log,
	}
}

// Submit routes a finalized reservation. Administrator requesters skip the
// protocol entirely: their reservation is committed directly (still behind the
// commit-time re-check) and committed=true is returned. For everyone else a
// pending request is created and fanned out to all administrators.
func (c *Coordinator) Submit(ctx context.Context, r *reservation.Reservation) (committed bool, err error) {
	if c.dir.IsAdmin(r.OwnerUserID) {
		if err := c.reservations.Commit(ctx, r); err != nil {
			return false, err
		}
		return true, nil
	}

	req := &request{
		reservation: r,
		notified:    make(map[int64]string),
	}

	c.mu.Lock()
	c.pending[r.ID] = req
	c.mu.Unlock()

	text := fmt.Sprintf("New booking request from %s\n\n%s\n\nApprove this booking?",
		r.Name, r.Summary())
	controls := []intent.Control{
		{Label: "Approve", Data: string(DecisionApprove) + ":" + r.ID},
		{Label: "Reject", Data: string(DecisionReject) + ":" + r.ID},
	}

	// One delivery per administrator; a failed delivery is logged and must not
	// abort the rest of the fan-out.
	var wg sync.WaitGroup
	for _, adminID := range c.dir.AdminIDs() {
		wg.Add(1)
		go func(adminID int64) {
			defer wg.Done()
			ref, err := c.notifier.Notify(ctx, adminID, text, controls)
			if err != nil {
				c.log.WithError(err).WithFields(logrus.Fields{
					"admin_id":       adminID,
					"reservation_id": r.ID,
				}).Error("administrator notification failed")
				return
			}
			c.mu.Lock()
			if req.processed {
				outcome := req.outcome
				c.mu.Unlock()
				// The decision landed while this delivery was in flight; the
				// amend pass has already run, so withdraw the controls here.
				if outcome == "" {
					outcome = r.Summary() + "\n\nThis request has already been handled."
				}
				if err := c.notifier.Amend(ctx, adminID, ref, outcome, nil); err != nil {
					c.log.WithError(err).WithField("admin_id", adminID).Error("late notification amend failed")
				}
				return
			}
			req.notified[adminID] = ref
			c.mu.Unlock()
		}(adminID)
	}
	wg.Wait()

	c.log.WithFields(logrus.Fields{
		"reservation_id": r.ID,
		"admins":         len(c.dir.AdminIDs()),
		"delivered":      len(req.notified),
	}).Info("approval request fanned out")
	return false, nil
}

// Decide applies an administrator's decision. The first decision received wins;
// any later decision, or one for an unknown request id, returns
// ErrStaleDecision and has no other effect.
func (c *Coordinator) Decide(ctx context.Context, adminID int64, reservationID string, d Decision) error {
	c.mu.Lock()
	req, ok := c.pending[reservationID]
	if !ok || req.processed {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{
			"admin_id":       adminID,
			"reservation_id": reservationID,
		}).Debug("stale decision ignored")
		return ErrStaleDecision
	}
	req.processed = true
	delete(c.pending, reservationID)
	notified := make(map[int64]string, len(req.notified))
	for id, ref := range req.notified {
		notified[id] = ref
	}
	c.mu.Unlock()

	r := req.reservation
	decider := c.dir.AdminName(adminID)

	var requesterText, adminText string

	switch d {
	case DecisionApprove:
		if err := c.reservations.Commit(ctx, r); err != nil {
			return c.failApproval(ctx, req, adminID, decider, notified, err)
		}
		r.Status = reservation.StatusCommitted
		requesterText = fmt.Sprintf("Your booking has been approved by %s!\n\n%s", decider, r.Summary())
		adminText = fmt.Sprintf("%s\n\nApproved by %s.", r.Summary(), decider)

	case DecisionReject:
		r.Status = reservation.StatusRejected
		requesterText = fmt.Sprintf("Your booking request has been rejected by %s.\n\n%s", decider, r.Summary())
		adminText = fmt.Sprintf("%s\n\nRejected by %s.", r.Summary(), decider)

	default:
		return fmt.Errorf("unknown decision %q", d)
	}

	c.recordOutcome(req, adminText)
	c.notifyRequester(ctx, r, requesterText)
	c.amendAdmins(ctx, notified, adminText)
	return nil
}

// failApproval handles an approve that could not be committed: a fresh
// conflict fails closed, anything else is surfaced as a store failure. In both
// cases requester and administrators learn the final state.
func (c *Coordinator) failApproval(ctx context.Context, req *request, adminID int64, decider string, notified map[int64]string, commitErr error) error {
	r := req.reservation
	r.Status = reservation.StatusRejected

	var conflict *reservation.ConflictError
	if errors.As(commitErr, &conflict) {
		requesterText := fmt.Sprintf(
			"Your booking was approved by %s, but the slot is no longer available: %s. Please make a new booking.",
			decider, conflict.Error())
		adminText := fmt.Sprintf("%s\n\nApproved by %s, but not committed: %s.",
			r.Summary(), decider, conflict.Error())

		c.recordOutcome(req, adminText)
		c.notifyRequester(ctx, r, requesterText)
		c.amendAdmins(ctx, notified, adminText)
		// The decider may not be among the amended set if their own
		// notification failed to deliver; tell them directly then.
		if _, ok := notified[adminID]; !ok {
			if _, err := c.notifier.Notify(ctx, adminID, adminText, nil); err != nil {
				c.log.WithError(err).WithField("admin_id", adminID).Error("conflict report to decider failed")
			}
		}
		return nil
	}

	c.log.WithError(commitErr).WithField("reservation_id", r.ID).Error("commit after approval failed")
	adminText := fmt.Sprintf("%s\n\nApproved by %s, but saving failed. The requester was asked to try again.",
		r.Summary(), decider)
	c.recordOutcome(req, adminText)
	c.notifyRequester(ctx, r,
		"Something went wrong while saving your booking. Please try again later.")
	c.amendAdmins(ctx, notified, adminText)
	return commitErr
}

// recordOutcome stores the final administrator-facing text on the request so
// fan-out deliveries still in flight can amend themselves on completion.
func (c *Coordinator) recordOutcome(req *request, text string) {
	c.mu.Lock()
	req.outcome = text
	c.mu.Unlock()
}

func (c *Coordinator) notifyRequester(ctx context.Context, r *reservation.Reservation, text string) {
	if _, err := c.notifier.Notify(ctx, r.OwnerUserID, text, nil); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"user_id":        r.OwnerUserID,
			"reservation_id": r.ID,
		}).Error("requester notification failed")
	}
}

// amendAdmins rewrites every administrator's original notification, dropping
// the decision controls and appending the outcome.
func (c *Coordinator) amendAdmins(ctx context.Context, notified map[int64]string, text string) {
	for adminID, ref := range notified {
		if err := c.notifier.Amend(ctx, adminID, ref, text, nil); err != nil {
			c.log.WithError(err).WithField("admin_id", adminID).Error("notification amend failed")
		}
	}
}

// PendingCount reports how many requests are awaiting a decision.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
