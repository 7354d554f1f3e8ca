package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"tutoria.org/internal/appointments"
	"tutoria.org/internal/identity"
	"tutoria.org/internal/notifications"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return Wrap(db), mock
}

func TestAccountCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("insert into usuarios").
		WithArgs("tutor1", "Tutor Uno", "tutor1@usal.es", "hash", identity.RoleTutor, nil, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := db.Accounts().Create(context.Background(), &identity.Account{
		Username:     "tutor1",
		Name:         "Tutor Uno",
		Email:        "tutor1@usal.es",
		PasswordHash: "hash",
		Role:         identity.RoleTutor,
		RegisteredAt: time.Now(),
	})
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAccountFindNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("select id, username, nombre, email, password_hash, rol, tutor_id, fecha_registro from usuarios where id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := db.Accounts().Find(context.Background(), 7); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAccountStudentsOf(t *testing.T) {
	db, mock := newMock(t)

	registered := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "username", "nombre", "email", "password_hash", "rol", "tutor_id", "fecha_registro",
	}).
		AddRow(int64(2), "juan", "Juan", "juan@usal.es", "h", "estudiante", int64(1), registered).
		AddRow(int64(3), "maria", "Maria", "maria@usal.es", "h", "estudiante", int64(1), registered)

	mock.ExpectQuery("select .* from usuarios where rol=.* and tutor_id=").
		WithArgs(identity.RoleStudent, int64(1)).
		WillReturnRows(rows)

	students, err := db.Accounts().StudentsOf(context.Background(), 1)
	if err != nil {
		t.Fatalf("StudentsOf: %v", err)
	}
	if len(students) != 2 || students[0].Username != "juan" || *students[1].TutorID != 1 {
		t.Fatalf("unexpected students: %+v", students)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAccountUpdateMissingRow(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("update usuarios set nombre").
		WithArgs("Nuevo", "nuevo@usal.es", nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.Accounts().Update(context.Background(), &identity.Account{
		ID: 9, Name: "Nuevo", Email: "nuevo@usal.es",
	})
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAppointmentSlotTaken(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("select exists").
		WithArgs(int64(1), "2025-06-10", "10:00", appointments.StatePending, appointments.StateConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := db.Appointments().SlotTaken(context.Background(), 1, "2025-06-10", "10:00")
	if err != nil {
		t.Fatalf("SlotTaken: %v", err)
	}
	if !taken {
		t.Fatal("expected slot to be taken")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestAppointmentCountByState(t *testing.T) {
	db, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"estado", "count"}).
		AddRow(appointments.StatePending, 2).
		AddRow(appointments.StateConfirmed, 1)
	mock.ExpectQuery("select estado, count").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	counts, err := db.Appointments().CountByState(context.Background(), 5)
	if err != nil {
		t.Fatalf("CountByState: %v", err)
	}
	if counts[appointments.StatePending] != 2 || counts[appointments.StateConfirmed] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("update notificaciones set leida=true").
		WithArgs(sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	changed, err := db.Notifications().MarkAllRead(context.Background(), 4, time.Now())
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if changed != 3 {
		t.Fatalf("expected 3 changed rows, got %d", changed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestNotificationDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec("delete from notificaciones where id").
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.Notifications().Delete(context.Background(), 11); !errors.Is(err, notifications.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
