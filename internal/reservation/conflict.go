package reservation

// FindConflict returns the first committed reservation that overlaps the
// candidate on the same facility and date, or nil when the slot is free.
//
// Overlap is the half-open interval test: the candidate conflicts when its
// start is before the other's end AND its end is after the other's start.
// Touching windows (one ending exactly when the other starts) do not conflict.
// The scan is O(n) in store iteration order, so callers can report whoever was
// booked first.
func FindConflict(candidate *Reservation, existing []*Reservation) *Reservation {
	for _, other := range existing {
		if other.Status != StatusCommitted {
			continue
		}
		if other.Facility != candidate.Facility || other.Date != candidate.Date {
			continue
		}
		if candidate.StartTime < other.EndTime && candidate.EndTime > other.StartTime {
			return other
		}
	}
	return nil
}
