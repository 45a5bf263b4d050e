package domain

import "time"

// WindowReason explains why a quiz is closed.
type WindowReason string

const (
	NotStarted WindowReason = "NotStarted"
	Ended      WindowReason = "Ended"
)

// Availability is the outcome of checking a quiz window at a point in time.
type Availability struct {
	Allowed bool
	Reason  WindowReason
}

// Availability decides whether the quiz is open at now. Both bounds are inclusive;
// a missing bound is unbounded on that side.
func (q Quiz) Availability(now time.Time) Availability {
	if q.StartAt != nil && now.Before(*q.StartAt) {
		return Availability{Reason: NotStarted}
	}
	if q.EndAt != nil && now.After(*q.EndAt) {
		return Availability{Reason: Ended}
	}
	return Availability{Allowed: true}
}

// Err converts a closed availability into an AccessWindowError.
func (a Availability) Err() error {
	if a.Allowed {
		return nil
	}
	return &AccessWindowError{Reason: a.Reason}
}
