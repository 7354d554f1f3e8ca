package pg

import (
	"context"
	"database/sql"
	"errors"

	"tutoria.org/internal/identity"
)

// AccountStore implements identity.Store on the usuarios table.
type AccountStore struct {
	db *sql.DB
}

var _ identity.Store = (*AccountStore)(nil)

const accountCols = `id, username, nombre, email, password_hash, rol, tutor_id, fecha_registro`

func (s *AccountStore) Create(ctx context.Context, a *identity.Account) error {
	err := s.db.QueryRowContext(ctx, `
		insert into usuarios(username, nombre, email, password_hash, rol, tutor_id, fecha_registro)
		values ($1,$2,$3,$4,$5,$6,$7)
		returning id
	`, a.Username, a.Name, a.Email, a.PasswordHash, a.Role, a.TutorID, a.RegisteredAt).Scan(&a.ID)
	if isUniqueViolation(err) {
		return identity.ErrConflict
	}
	return err
}

func (s *AccountStore) Find(ctx context.Context, id int64) (*identity.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountCols+` from usuarios where id=$1`, id)
	return scanAccount(row)
}

func (s *AccountStore) FindByUsername(ctx context.Context, username string) (*identity.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountCols+` from usuarios where lower(username)=lower($1)`, username)
	return scanAccount(row)
}

func (s *AccountStore) List(ctx context.Context, role identity.Role) ([]*identity.Account, error) {
	query := `select ` + accountCols + ` from usuarios order by nombre`
	args := []any{}
	if role != "" {
		query = `select ` + accountCols + ` from usuarios where rol=$1 order by nombre`
		args = append(args, role)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *AccountStore) Update(ctx context.Context, a *identity.Account) error {
	res, err := s.db.ExecContext(ctx, `
		update usuarios set nombre=$1, email=$2, tutor_id=$3 where id=$4
	`, a.Name, a.Email, a.TutorID, a.ID)
	if isUniqueViolation(err) {
		return identity.ErrConflict
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from usuarios where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (s *AccountStore) StudentsOf(ctx context.Context, tutorID int64) ([]*identity.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+accountCols+` from usuarios where rol=$1 and tutor_id=$2 order by nombre
	`, identity.RoleStudent, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (s *AccountStore) CountStudents(ctx context.Context, tutorID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from usuarios where rol=$1 and tutor_id=$2
	`, identity.RoleStudent, tutorID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*identity.Account, error) {
	var a identity.Account
	var tutorID sql.NullInt64
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &tutorID, &a.RegisteredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if tutorID.Valid {
		a.TutorID = &tutorID.Int64
	}
	return &a, nil
}

func scanAccounts(rows *sql.Rows) ([]*identity.Account, error) {
	var out []*identity.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
