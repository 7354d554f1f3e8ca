package pg

import (
	"context"
	"database/sql"
	"errors"

	"tutoria.org/internal/appointments"
)

// AppointmentStore implements appointments.Store on the citas table.
type AppointmentStore struct {
	db *sql.DB
}

var _ appointments.Store = (*AppointmentStore)(nil)

const appointmentCols = `id, estudiante_id, tutor_id, fecha, hora, motivo, lugar,
	notas, estado, motivo_rechazo, fecha_solicitud, fecha_respuesta`

func (s *AppointmentStore) Create(ctx context.Context, a *appointments.Appointment) error {
	return s.db.QueryRowContext(ctx, `
		insert into citas(estudiante_id, tutor_id, fecha, hora, motivo, lugar,
			notas, estado, motivo_rechazo, fecha_solicitud)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		returning id
	`, a.StudentID, a.TutorID, a.Date, a.Time, a.Reason, a.Place,
		a.Notes, a.State, a.RejectReason, a.RequestedAt).Scan(&a.ID)
}

func (s *AppointmentStore) Find(ctx context.Context, id int64) (*appointments.Appointment, error) {
	row := s.db.QueryRowContext(ctx, `select `+appointmentCols+` from citas where id=$1`, id)
	return scanAppointment(row)
}

func (s *AppointmentStore) Update(ctx context.Context, a *appointments.Appointment) error {
	res, err := s.db.ExecContext(ctx, `
		update citas set lugar=$1, notas=$2, estado=$3, motivo_rechazo=$4, fecha_respuesta=$5
		where id=$6
	`, a.Place, a.Notes, a.State, a.RejectReason, a.RespondedAt, a.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appointments.ErrNotFound
	}
	return nil
}

func (s *AppointmentStore) ForUser(ctx context.Context, userID int64, state string) ([]*appointments.Appointment, error) {
	query := `select ` + appointmentCols + ` from citas where (estudiante_id=$1 or tutor_id=$1)`
	args := []any{userID}
	if state != "" {
		query += ` and estado=$2`
		args = append(args, state)
	}
	query += ` order by fecha desc, hora desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *AppointmentStore) Confirmed(ctx context.Context, tutorID int64) ([]*appointments.Appointment, error) {
	return s.byTutorState(ctx, tutorID, appointments.StateConfirmed)
}

func (s *AppointmentStore) PendingForTutor(ctx context.Context, tutorID int64) ([]*appointments.Appointment, error) {
	return s.byTutorState(ctx, tutorID, appointments.StatePending)
}

func (s *AppointmentStore) byTutorState(ctx context.Context, tutorID int64, state string) ([]*appointments.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+appointmentCols+` from citas
		where tutor_id=$1 and estado=$2 order by fecha asc, hora asc
	`, tutorID, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *AppointmentStore) CountByState(ctx context.Context, userID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		select estado, count(*) from citas
		where estudiante_id=$1 or tutor_id=$1 group by estado
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

func (s *AppointmentStore) SlotTaken(ctx context.Context, tutorID int64, date, hour string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		select exists(
			select 1 from citas
			where tutor_id=$1 and fecha=$2 and hora=$3 and estado in ($4,$5)
		)
	`, tutorID, date, hour, appointments.StatePending, appointments.StateConfirmed).Scan(&taken)
	return taken, err
}

func scanAppointment(row rowScanner) (*appointments.Appointment, error) {
	var a appointments.Appointment
	var respondedAt sql.NullTime
	err := row.Scan(&a.ID, &a.StudentID, &a.TutorID, &a.Date, &a.Time, &a.Reason, &a.Place,
		&a.Notes, &a.State, &a.RejectReason, &a.RequestedAt, &respondedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appointments.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		a.RespondedAt = &respondedAt.Time
	}
	return &a, nil
}

func scanAppointments(rows *sql.Rows) ([]*appointments.Appointment, error) {
	var out []*appointments.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
