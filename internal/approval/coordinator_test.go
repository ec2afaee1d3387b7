package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/facility-booking-bot/internal/directory"
	"github.com/nekogravitycat/facility-booking-bot/internal/intent"
	"github.com/nekogravitycat/facility-booking-bot/internal/reservation"
)

type sentMessage struct {
	UserID   int64
	Text     string
	Controls []intent.Control
}

type amendedMessage struct {
	UserID int64
	Ref    string
	Text   string
}

// recordingNotifier captures outbound traffic; deliveries to ids in failFor
// return an error instead.
type recordingNotifier struct {
	mu      sync.Mutex
	seq     int
	sent    []sentMessage
	amended []amendedMessage
	failFor map[int64]bool
}

func (n *recordingNotifier) Prompt(ctx context.Context, userID int64, p intent.Prompt) error {
	return nil
}

func (n *recordingNotifier) Notify(ctx context.Context, userID int64, text string, controls []intent.Control) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[userID] {
		return "", errors.New("delivery failed")
	}
	n.seq++
	n.sent = append(n.sent, sentMessage{UserID: userID, Text: text, Controls: controls})
	return fmt.Sprintf("msg-%d", n.seq), nil
}

func (n *recordingNotifier) Amend(ctx context.Context, userID int64, ref, text string, controls []intent.Control) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.amended = append(n.amended, amendedMessage{UserID: userID, Ref: ref, Text: text})
	return nil
}

func (n *recordingNotifier) sentTo(userID int64) []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMessage
	for _, m := range n.sent {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

// lateDeliveryNotifier holds one administrator's delivery open until released,
// so a decision can land while the fan-out is still in flight.
type lateDeliveryNotifier struct {
	recordingNotifier
	bobDelivered chan struct{}
	aliceBlocked chan struct{}
	aliceRelease chan struct{}
}

func (n *lateDeliveryNotifier) Notify(ctx context.Context, userID int64, text string, controls []intent.Control) (string, error) {
	switch userID {
	case adminAlice:
		close(n.aliceBlocked)
		<-n.aliceRelease
		return n.recordingNotifier.Notify(ctx, userID, text, controls)
	case adminBob:
		ref, err := n.recordingNotifier.Notify(ctx, userID, text, controls)
		close(n.bobDelivered)
		return ref, err
	}
	return n.recordingNotifier.Notify(ctx, userID, text, controls)
}

// stubService counts commits and returns commitErr when set.
type stubService struct {
	mu        sync.Mutex
	commits   []*reservation.Reservation
	commitErr error
}

func (s *stubService) CheckSlot(candidate *reservation.Reservation) *reservation.Reservation {
	return nil
}

func (s *stubService) Commit(ctx context.Context, r *reservation.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	r.Status = reservation.StatusCommitted
	s.commits = append(s.commits, r)
	return nil
}

func (s *stubService) List(ctx context.Context) ([]*reservation.Reservation, error) { return nil, nil }

func (s *stubService) ListByEmail(email string) []*reservation.Reservation { return nil }

func (s *stubService) Cancel(ctx context.Context, key reservation.Key) error { return nil }

func (s *stubService) Refresh(ctx context.Context) error { return nil }

const (
	requesterID = int64(42)
	adminAlice  = int64(100)
	adminBob    = int64(200)
)

func testDirectory() *directory.Directory {
	return directory.New(
		[]int64{requesterID},
		map[int64]string{adminAlice: "Alice", adminBob: "Bob"},
	)
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "test")
}

func pendingReservation() *reservation.Reservation {
	return &reservation.Reservation{
		ID:            "res-1",
		Facility:      "Basketball Court",
		Date:          "07/01/2026",
		StartTime:     "10:00",
		EndTime:       "11:00",
		Email:         "carol@example.com",
		Name:          "Carol",
		ContactNumber: "91234567",
		OwnerUserID:   requesterID,
		Status:        reservation.StatusPending,
	}
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Fans Out To Every Administrator", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		committed, err := c.Submit(ctx, pendingReservation())
		require.NoError(t, err)
		assert.False(t, committed)
		assert.Equal(t, 1, c.PendingCount())

		for _, adminID := range []int64{adminAlice, adminBob} {
			msgs := notifier.sentTo(adminID)
			require.Len(t, msgs, 1, "admin %d", adminID)
			assert.Contains(t, msgs[0].Text, "New booking request from Carol")
			assert.Contains(t, msgs[0].Text, "Approve this booking?")
			require.Len(t, msgs[0].Controls, 2)
			assert.Equal(t, "approve:res-1", msgs[0].Controls[0].Data)
			assert.Equal(t, "reject:res-1", msgs[0].Controls[1].Data)
		}

		svc.mu.Lock()
		assert.Empty(t, svc.commits, "nothing committed before a decision")
		svc.mu.Unlock()
	})

	t.Run("Administrator Requester Commits Directly", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		r.OwnerUserID = adminAlice
		committed, err := c.Submit(ctx, r)
		require.NoError(t, err)
		assert.True(t, committed)
		assert.Equal(t, 0, c.PendingCount())
		assert.Empty(t, notifier.sent, "no approval round for administrators")
	})

	t.Run("One Failed Delivery Does Not Abort The Fan Out", func(t *testing.T) {
		notifier := &recordingNotifier{failFor: map[int64]bool{adminAlice: true}}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		committed, err := c.Submit(ctx, pendingReservation())
		require.NoError(t, err)
		assert.False(t, committed)
		assert.Empty(t, notifier.sentTo(adminAlice))
		assert.Len(t, notifier.sentTo(adminBob), 1)

		// Bob can still decide.
		require.NoError(t, c.Decide(ctx, adminBob, "res-1", DecisionApprove))
	})
}

func TestDecide(t *testing.T) {
	ctx := context.Background()

	t.Run("Approve Commits And Notifies", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		require.NoError(t, c.Decide(ctx, adminAlice, r.ID, DecisionApprove))

		svc.mu.Lock()
		require.Len(t, svc.commits, 1)
		svc.mu.Unlock()
		assert.Equal(t, reservation.StatusCommitted, r.Status)
		assert.Equal(t, 0, c.PendingCount())

		requesterMsgs := notifier.sentTo(requesterID)
		require.Len(t, requesterMsgs, 1)
		assert.Contains(t, requesterMsgs[0].Text, "approved by Alice")

		notifier.mu.Lock()
		amended := len(notifier.amended)
		notifier.mu.Unlock()
		assert.Equal(t, 2, amended, "both admin notifications are amended")
	})

	t.Run("Reject Leaves The Store Untouched", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		require.NoError(t, c.Decide(ctx, adminBob, r.ID, DecisionReject))

		svc.mu.Lock()
		assert.Empty(t, svc.commits)
		svc.mu.Unlock()
		assert.Equal(t, reservation.StatusRejected, r.Status)

		requesterMsgs := notifier.sentTo(requesterID)
		require.Len(t, requesterMsgs, 1)
		assert.Contains(t, requesterMsgs[0].Text, "rejected by Bob")
	})

	t.Run("Second Decision Is Stale", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		require.NoError(t, c.Decide(ctx, adminAlice, r.ID, DecisionApprove))
		assert.ErrorIs(t, c.Decide(ctx, adminBob, r.ID, DecisionReject), ErrStaleDecision)

		svc.mu.Lock()
		assert.Len(t, svc.commits, 1, "the losing decision has no effect")
		svc.mu.Unlock()
	})

	t.Run("Unknown Reservation Is Stale", func(t *testing.T) {
		c := NewCoordinator(&recordingNotifier{}, testDirectory(), &stubService{}, testLogger())
		assert.ErrorIs(t, c.Decide(ctx, adminAlice, "never-submitted", DecisionApprove), ErrStaleDecision)
	})

	t.Run("Concurrent Conflicting Decisions", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			errs[0] = c.Decide(ctx, adminAlice, r.ID, DecisionApprove)
		}()
		go func() {
			defer wg.Done()
			errs[1] = c.Decide(ctx, adminBob, r.ID, DecisionReject)
		}()
		wg.Wait()

		stale := 0
		for _, err := range errs {
			if errors.Is(err, ErrStaleDecision) {
				stale++
			} else {
				require.NoError(t, err)
			}
		}
		assert.Equal(t, 1, stale, "exactly one decision wins")

		svc.mu.Lock()
		commits := len(svc.commits)
		svc.mu.Unlock()
		assert.LessOrEqual(t, commits, 1)
		assert.Len(t, notifier.sentTo(requesterID), 1, "requester hears one outcome")
	})

	t.Run("Approve Over A Fresh Conflict Fails Closed", func(t *testing.T) {
		notifier := &recordingNotifier{}
		blocking := &reservation.Reservation{
			Facility:  "Basketball Court",
			Date:      "07/01/2026",
			StartTime: "10:00",
			EndTime:   "11:00",
			Name:      "Alice",
			Status:    reservation.StatusCommitted,
		}
		svc := &stubService{commitErr: &reservation.ConflictError{Blocking: blocking}}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		require.NoError(t, c.Decide(ctx, adminAlice, r.ID, DecisionApprove))

		assert.Equal(t, reservation.StatusRejected, r.Status, "approval does not override the store")

		requesterMsgs := notifier.sentTo(requesterID)
		require.Len(t, requesterMsgs, 1)
		assert.Contains(t, requesterMsgs[0].Text, "no longer available")
		assert.Contains(t, requesterMsgs[0].Text, "Please make a new booking.")

		notifier.mu.Lock()
		amended := len(notifier.amended)
		notifier.mu.Unlock()
		assert.Equal(t, 2, amended)
	})

	t.Run("Delivery Completing After The Decision Loses Its Controls", func(t *testing.T) {
		notifier := &lateDeliveryNotifier{
			recordingNotifier: recordingNotifier{},
			bobDelivered:      make(chan struct{}),
			aliceBlocked:      make(chan struct{}),
			aliceRelease:      make(chan struct{}),
		}
		svc := &stubService{}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = c.Submit(ctx, r)
		}()

		// Bob has his controls, Alice's delivery is still in flight when the
		// decision lands.
		<-notifier.aliceBlocked
		<-notifier.bobDelivered
		require.NoError(t, c.Decide(ctx, adminBob, r.ID, DecisionApprove))

		close(notifier.aliceRelease)
		<-done

		aliceMsgs := notifier.sentTo(adminAlice)
		require.Len(t, aliceMsgs, 1)
		require.Len(t, aliceMsgs[0].Controls, 2)

		notifier.mu.Lock()
		var aliceAmends []amendedMessage
		for _, a := range notifier.amended {
			if a.UserID == adminAlice {
				aliceAmends = append(aliceAmends, a)
			}
		}
		notifier.mu.Unlock()
		require.Len(t, aliceAmends, 1, "the late delivery is amended on arrival")
		assert.Contains(t, aliceAmends[0].Text, "Approved by Bob")
	})

	t.Run("Store Failure On Approve Asks Requester To Retry", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := &stubService{commitErr: reservation.ErrStoreUnavailable}
		c := NewCoordinator(notifier, testDirectory(), svc, testLogger())

		r := pendingReservation()
		_, err := c.Submit(ctx, r)
		require.NoError(t, err)

		err = c.Decide(ctx, adminAlice, r.ID, DecisionApprove)
		assert.ErrorIs(t, err, reservation.ErrStoreUnavailable)

		requesterMsgs := notifier.sentTo(requesterID)
		require.Len(t, requesterMsgs, 1)
		assert.Contains(t, requesterMsgs[0].Text, "Please try again later.")
	})
}
