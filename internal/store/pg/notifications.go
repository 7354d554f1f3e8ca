package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tutoria.org/internal/notifications"
)

// NotificationStore implements notifications.Store on the notificaciones
// table.
type NotificationStore struct {
	db *sql.DB
}

var _ notifications.Store = (*NotificationStore)(nil)

const notificationCols = `id, tipo, usuario_destino_id, usuario_origen_id, mensaje,
	referencia_tipo, referencia_id, fecha_creacion, leida, fecha_lectura`

func (s *NotificationStore) Create(ctx context.Context, n *notifications.Notification) error {
	return s.db.QueryRowContext(ctx, `
		insert into notificaciones(tipo, usuario_destino_id, usuario_origen_id,
			mensaje, referencia_tipo, referencia_id, fecha_creacion, leida)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		returning id
	`, n.Kind, n.RecipientID, n.SenderID, n.Body, n.RefKind, n.RefID,
		n.CreatedAt, n.Read).Scan(&n.ID)
}

func (s *NotificationStore) Find(ctx context.Context, id int64) (*notifications.Notification, error) {
	row := s.db.QueryRowContext(ctx, `select `+notificationCols+` from notificaciones where id=$1`, id)
	return scanNotification(row)
}

func (s *NotificationStore) ForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*notifications.Notification, error) {
	query := `select ` + notificationCols + ` from notificaciones where usuario_destino_id=$1`
	if unreadOnly {
		query += ` and not leida`
	}
	query += ` order by fecha_creacion desc, id desc`
	args := []any{userID}
	if limit > 0 {
		query += ` limit $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*notifications.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) Update(ctx context.Context, n *notifications.Notification) error {
	res, err := s.db.ExecContext(ctx, `
		update notificaciones set leida=$1, fecha_lectura=$2 where id=$3
	`, n.Read, n.ReadAt, n.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		update notificaciones set leida=true, fecha_lectura=$1
		where usuario_destino_id=$2 and not leida
	`, at, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from notificaciones where usuario_destino_id=$1 and not leida
	`, userID).Scan(&n)
	return n, err
}

func (s *NotificationStore) CountByKind(ctx context.Context, userID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		select tipo, count(*) from notificaciones
		where usuario_destino_id=$1 group by tipo
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from notificaciones where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func (s *NotificationStore) Purge(ctx context.Context, userID int64, readOnly bool) (int, error) {
	query := `delete from notificaciones where usuario_destino_id=$1`
	if readOnly {
		query += ` and leida`
	}
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanNotification(row rowScanner) (*notifications.Notification, error) {
	var n notifications.Notification
	var senderID sql.NullInt64
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.Kind, &n.RecipientID, &senderID, &n.Body,
		&n.RefKind, &n.RefID, &n.CreatedAt, &n.Read, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notifications.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if senderID.Valid {
		n.SenderID = &senderID.Int64
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return &n, nil
}
