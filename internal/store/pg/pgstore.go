// Package pg implements the service stores on Postgres through the pgx
// stdlib driver. One DB handle is shared; each service takes the store for
// the table it owns.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type DB struct {
	db *sql.DB
}

func Open(dsn string) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{db: db}, nil
}

// Wrap reuses an existing handle. Tests use it with sqlmock.
func Wrap(db *sql.DB) *DB { return &DB{db: db} }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) Accounts() *AccountStore           { return &AccountStore{db: d.db} }
func (d *DB) Submissions() *SubmissionStore     { return &SubmissionStore{db: d.db} }
func (d *DB) Appointments() *AppointmentStore   { return &AppointmentStore{db: d.db} }
func (d *DB) Notifications() *NotificationStore { return &NotificationStore{db: d.db} }

// isUniqueViolation reports a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
