package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores notifications in the notifications table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("notifications: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, is_read, appointment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`
	if _, err := r.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.IsRead,
		n.AppointmentID,
		n.CreatedAt,
	); err != nil {
		return fmt.Errorf("notifications: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, type, title, message, is_read, COALESCE(appointment_id, ''), created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	out := []*Notification{}
	for rows.Next() {
		var (
			n        Notification
			typeName string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typeName, &n.Title, &n.Message, &n.IsRead, &n.AppointmentID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		n.Type = Type(typeName)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notifications: iterate: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("notifications: unread count: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE user_id = $1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("notifications: mark all read: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
