package reservation

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service owns the shared reservation snapshot and the serialized commit path.
type Service interface {
	// CheckSlot probes the current snapshot for a conflicting committed
	// reservation. Nil means the slot looks free; the result is advisory only
	// and must be re-checked at commit time.
	CheckSlot(candidate *Reservation) *Reservation

	// Commit re-checks the candidate against a fresh store read and, if the
	// slot is still free, appends it as committed. Returns a *ConflictError
	// when the slot has been taken since the original check (fail closed).
	// Commits are serialized: two concurrent commits for the same slot cannot
	// both succeed.
	Commit(ctx context.Context, r *Reservation) error

	// List reads the full committed set from the store.
	List(ctx context.Context) ([]*Reservation, error)

	// ListByEmail filters the snapshot for a requester's reservations.
	ListByEmail(email string) []*Reservation

	// Cancel deletes the row matching key and refreshes the snapshot.
	Cancel(ctx context.Context, key Key) error

	// Refresh reloads the snapshot from the store.
	Refresh(ctx context.Context) error
}

type service struct {
	repo  Repository
	cache *Cache

	// commitMu funnels every store mutation and its preceding conflict
	// re-check through one serialized path.
	commitMu sync.Mutex

	log *logrus.Entry
}

func NewService(repo Repository, cache *Cache, log *logrus.Entry) Service {
	return &service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func (s *service) CheckSlot(candidate *Reservation) *Reservation {
	return FindConflict(candidate, s.cache.Snapshot())
}

func (s *service) Commit(ctx context.Context, r *Reservation) error {
	if r.EndTime <= r.StartTime {
		return ErrInvalidTimeRange
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// Fresh read: the store may have changed since the proposal-time check.
	existing, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("read store before commit: %w", err)
	}
	if blocking := FindConflict(r, existing); blocking != nil {
		s.cache.Replace(existing)
		return &ConflictError{Blocking: blocking}
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Status = StatusCommitted

	if err := s.repo.Append(ctx, r); err != nil {
		return err
	}
	s.cache.Replace(append(existing, r))

	s.log.WithFields(logrus.Fields{
		"reservation_id": r.ID,
		"facility":       r.Facility,
		"date":           r.Date,
		"period":         r.TimePeriod(),
	}).Info("reservation committed")
	return nil
}

func (s *service) List(ctx context.Context) ([]*Reservation, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) ListByEmail(email string) []*Reservation {
	var out []*Reservation
	for _, r := range s.cache.Snapshot() {
		if r.Email == email {
			out = append(out, r)
		}
	}
	return out
}

func (s *service) Cancel(ctx context.Context, key Key) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}

	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		// The delete went through; a stale snapshot here only delays reuse of
		// the slot until the next refresh.
		s.log.WithError(err).Warn("snapshot refresh after delete failed")
		return nil
	}
	s.cache.Replace(rows)

	s.log.WithFields(logrus.Fields{
		"facility": key.Facility,
		"date":     key.Date,
		"period":   key.StartTime + "-" + key.EndTime,
	}).Info("reservation cancelled")
	return nil
}

func (s *service) Refresh(ctx context.Context) error {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh reservations snapshot: %w", err)
	}
	s.cache.Replace(rows)
	return nil
}
