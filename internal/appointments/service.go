package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutoria.org/internal/identity"
	"tutoria.org/internal/notify"
)

// Service implements the tutoring session lifecycle. Role facts about the
// counterparty come from the identity directory; the caller's own identity
// is established upstream from the bearer token.
type Service struct {
	store     Store
	directory identity.Directory
	sink      notify.Sink
	now       func() time.Time
}

func NewService(store Store, directory identity.Directory, sink notify.Sink) *Service {
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Service{
		store:     store,
		directory: directory,
		sink:      sink,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a pending appointment for the calling student. The slot
// (tutor+fecha+hora) must be free of pending or confirmed appointments.
func (s *Service) Request(ctx context.Context, studentID int64, req Request) (*Appointment, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if req.TutorID <= 0 || req.Reason == "" {
		return nil, fmt.Errorf("%w: tutor_id and motivo are required", ErrInvalidInput)
	}
	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: fecha must be %s", ErrInvalidInput, DateLayout)
	}
	if _, err := time.Parse(TimeLayout, req.Time); err != nil {
		return nil, fmt.Errorf("%w: hora must be %s", ErrInvalidInput, TimeLayout)
	}

	tutor, err := s.directory.GetAccount(ctx, req.TutorID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d is not a tutor", ErrInvalidInput, req.TutorID)
		}
		return nil, err
	}
	if tutor.Role != identity.RoleTutor {
		return nil, fmt.Errorf("%w: id %d is not a tutor", ErrInvalidInput, req.TutorID)
	}

	taken, err := s.store.SlotTaken(ctx, req.TutorID, req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	appt := &Appointment{
		StudentID:   studentID,
		TutorID:     req.TutorID,
		Date:        req.Date,
		Time:        req.Time,
		Reason:      req.Reason,
		State:       StatePending,
		RequestedAt: s.now(),
	}
	if err := s.store.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.Message{
		Kind:        notify.KindAppointmentRequested,
		RecipientID: appt.TutorID,
		SenderID:    &appt.StudentID,
		Body:        fmt.Sprintf("Nueva solicitud de cita para %s a las %s", appt.Date, appt.Time),
		RefKind:     notify.RefAppointment,
		RefID:       appt.ID,
	})
	return appt, nil
}

// Respond is the assigned tutor's single answer to a pending request:
// accept (optionally fixing lugar/notas) or reject with a reason.
func (s *Service) Respond(ctx context.Context, tutorID, id int64, resp Response) (*Appointment, error) {
	appt, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if appt.State != StatePending {
		return nil, fmt.Errorf("%w: cannot respond from %s", ErrInvalidTransition, appt.State)
	}

	now := s.now()
	appt.RespondedAt = &now
	kind := notify.KindAppointmentConfirmed
	body := fmt.Sprintf("Tu cita para %s a las %s ha sido confirmada", appt.Date, appt.Time)
	if resp.Accept {
		appt.State = StateConfirmed
		appt.Place = strings.TrimSpace(resp.Place)
		appt.Notes = strings.TrimSpace(resp.Notes)
	} else {
		appt.State = StateRejected
		appt.RejectReason = strings.TrimSpace(resp.RejectReason)
		if appt.RejectReason == "" {
			appt.RejectReason = "Sin motivo especificado"
		}
		kind = notify.KindAppointmentRejected
		body = fmt.Sprintf("Tu cita para %s a las %s ha sido rechazada", appt.Date, appt.Time)
	}
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.Message{
		Kind:        kind,
		RecipientID: appt.StudentID,
		SenderID:    &tutorID,
		Body:        body,
		RefKind:     notify.RefAppointment,
		RefID:       appt.ID,
	})
	return appt, nil
}

// Cancel withdraws a pending or confirmed appointment. Either party may
// cancel; the other one is notified.
func (s *Service) Cancel(ctx context.Context, callerID, id int64) (*Appointment, error) {
	appt, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerID != appt.StudentID && callerID != appt.TutorID {
		return nil, ErrForbidden
	}
	if appt.State != StatePending && appt.State != StateConfirmed {
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrInvalidTransition, appt.State)
	}

	now := s.now()
	appt.State = StateCancelled
	appt.RespondedAt = &now
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, err
	}

	other := appt.TutorID
	if callerID == appt.TutorID {
		other = appt.StudentID
	}
	s.sink.Notify(ctx, notify.Message{
		Kind:        notify.KindSystem,
		RecipientID: other,
		SenderID:    &callerID,
		Body:        fmt.Sprintf("La cita para %s a las %s ha sido cancelada", appt.Date, appt.Time),
		RefKind:     notify.RefAppointment,
		RefID:       appt.ID,
	})
	return appt, nil
}

// Complete closes a confirmed appointment after it took place. Only the
// assigned tutor completes, optionally attaching session notes.
func (s *Service) Complete(ctx context.Context, tutorID, id int64, notes string) (*Appointment, error) {
	appt, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.TutorID != tutorID {
		return nil, ErrForbidden
	}
	if appt.State != StateConfirmed {
		return nil, fmt.Errorf("%w: cannot complete from %s", ErrInvalidTransition, appt.State)
	}

	appt.State = StateCompleted
	if notes = strings.TrimSpace(notes); notes != "" {
		appt.Notes = notes
	}
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notify.Message{
		Kind:        notify.KindSystem,
		RecipientID: appt.StudentID,
		SenderID:    &tutorID,
		Body:        fmt.Sprintf("La tutoría del %s a las %s ha sido completada", appt.Date, appt.Time),
		RefKind:     notify.RefAppointment,
		RefID:       appt.ID,
	})
	return appt, nil
}

// ForUser lists appointments where the user is either party, newest first.
func (s *Service) ForUser(ctx context.Context, userID int64, state string) ([]*Appointment, error) {
	if state != "" && !ValidState(state) {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidInput, state)
	}
	return s.store.ForUser(ctx, userID, state)
}

// Agenda lists a tutor's confirmed appointments chronologically. With
// upcoming set, past dates are dropped.
func (s *Service) Agenda(ctx context.Context, tutorID int64, upcoming bool) ([]*Appointment, error) {
	appts, err := s.store.Confirmed(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	if !upcoming {
		return appts, nil
	}
	today := s.now().Format(DateLayout)
	out := appts[:0]
	for _, a := range appts {
		if a.Date >= today {
			out = append(out, a)
		}
	}
	return out, nil
}

// PendingFor lists a tutor's open requests chronologically.
func (s *Service) PendingFor(ctx context.Context, tutorID int64) ([]*Appointment, error) {
	return s.store.PendingForTutor(ctx, tutorID)
}

// StatsFor counts a user's appointments per state.
func (s *Service) StatsFor(ctx context.Context, userID int64) (*Stats, error) {
	counts, err := s.store.CountByState(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &Stats{UserID: userID, ByState: counts}
	for _, n := range counts {
		stats.Total += n
	}
	confirmed, err := s.store.ForUser(ctx, userID, StateConfirmed)
	if err != nil {
		return nil, err
	}
	today := s.now().Format(DateLayout)
	for _, a := range confirmed {
		if a.Date >= today {
			stats.Upcoming++
		}
	}
	return stats, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.store.Find(ctx, id)
}
