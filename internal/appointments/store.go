package appointments

import "context"

// Store describes persistence for appointments.
type Store interface {
	Create(ctx context.Context, a *Appointment) error
	Find(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// ForUser returns appointments where the user is either party, newest
	// first by fecha then hora, optionally filtered by state.
	ForUser(ctx context.Context, userID int64, state string) ([]*Appointment, error)
	// Confirmed returns a tutor's confirmed appointments in chronological
	// order.
	Confirmed(ctx context.Context, tutorID int64) ([]*Appointment, error)
	// PendingForTutor returns a tutor's pending requests in chronological
	// order.
	PendingForTutor(ctx context.Context, tutorID int64) ([]*Appointment, error)
	CountByState(ctx context.Context, userID int64) (map[string]int, error)
	// SlotTaken reports whether the tutor already has a pending or
	// confirmed appointment at the given fecha+hora.
	SlotTaken(ctx context.Context, tutorID int64, date, hour string) (bool, error)
}
