package pg

import (
	"context"
	"database/sql"
	"errors"

	"tutoria.org/internal/files"
)

// SubmissionStore implements files.Store on the archivos table.
type SubmissionStore struct {
	db *sql.DB
}

var _ files.Store = (*SubmissionStore)(nil)

const submissionCols = `id, nombre_original, nombre_guardado, tipo, tamanio,
	estudiante_id, tutor_id, fecha_subida, feedback, fecha_feedback, estado`

func (s *SubmissionStore) Create(ctx context.Context, sub *files.Submission) error {
	return s.db.QueryRowContext(ctx, `
		insert into archivos(nombre_original, nombre_guardado, tipo, tamanio,
			estudiante_id, tutor_id, fecha_subida, feedback, estado)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		returning id
	`, sub.OriginalName, sub.StoredName, sub.Kind, sub.Size,
		sub.StudentID, sub.TutorID, sub.UploadedAt, sub.Feedback, sub.State).Scan(&sub.ID)
}

func (s *SubmissionStore) Find(ctx context.Context, id int64) (*files.Submission, error) {
	row := s.db.QueryRowContext(ctx, `select `+submissionCols+` from archivos where id=$1`, id)
	return scanSubmission(row)
}

func (s *SubmissionStore) ByStudent(ctx context.Context, studentID int64, newestFirst bool) ([]*files.Submission, error) {
	order := "asc"
	if newestFirst {
		order = "desc"
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+submissionCols+` from archivos
		where estudiante_id=$1 order by fecha_subida `+order,
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *SubmissionStore) ByTutor(ctx context.Context, tutorID int64, state string) ([]*files.Submission, error) {
	query := `select ` + submissionCols + ` from archivos where tutor_id=$1`
	args := []any{tutorID}
	if state != "" {
		query += ` and estado=$2`
		args = append(args, state)
	}
	query += ` order by fecha_subida desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (s *SubmissionStore) CountByState(ctx context.Context, tutorID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		select estado, count(*) from archivos where tutor_id=$1 group by estado
	`, tutorID)
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

func (s *SubmissionStore) Update(ctx context.Context, sub *files.Submission) error {
	res, err := s.db.ExecContext(ctx, `
		update archivos set feedback=$1, fecha_feedback=$2, estado=$3 where id=$4
	`, sub.Feedback, sub.FeedbackAt, sub.State, sub.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return files.ErrNotFound
	}
	return nil
}

func (s *SubmissionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from archivos where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return files.ErrNotFound
	}
	return nil
}

func scanSubmission(row rowScanner) (*files.Submission, error) {
	var sub files.Submission
	var feedbackAt sql.NullTime
	err := row.Scan(&sub.ID, &sub.OriginalName, &sub.StoredName, &sub.Kind, &sub.Size,
		&sub.StudentID, &sub.TutorID, &sub.UploadedAt, &sub.Feedback, &feedbackAt, &sub.State)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, files.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if feedbackAt.Valid {
		sub.FeedbackAt = &feedbackAt.Time
	}
	return &sub, nil
}

func scanSubmissions(rows *sql.Rows) ([]*files.Submission, error) {
	var out []*files.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
