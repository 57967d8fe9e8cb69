package appointments

import (
	"context"
	"errors"
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

// PostgresRepository stores appointments in the appointments table.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const appointmentColumns = `id, patient_id, patient_email, doctor_id, slot_date, slot_time, status,
		payment_status, fee, symptoms, notes, confirm_token, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if _, err := r.db.Exec(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.PatientEmail,
		appt.DoctorID,
		appt.Date,
		appt.Time,
		string(appt.Status),
		string(appt.PaymentStatus),
		appt.Fee,
		appt.Symptoms,
		appt.Notes,
		appt.ConfirmToken,
		appt.CreatedAt,
		appt.UpdatedAt,
	); err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	appt, err := scanAppointment(r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

// Update writes the mutable columns: status, payment status, notes and the
// confirmation token.
func (r *PostgresRepository) Update(ctx context.Context, appt *Appointment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET status = $2, payment_status = $3, notes = $4, confirm_token = $5, updated_at = $6
		WHERE id = $1
	`, appt.ID, string(appt.Status), string(appt.PaymentStatus), appt.Notes, appt.ConfirmToken, appt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PostgresRepository) ListForPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountForPatient(ctx context.Context, patientID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE patient_id = $1`, patientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("appointments: count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var (
		a             Appointment
		status        string
		paymentStatus string
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientEmail,
		&a.DoctorID,
		&a.Date,
		&a.Time,
		&status,
		&paymentStatus,
		&a.Fee,
		&a.Symptoms,
		&a.Notes,
		&a.ConfirmToken,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = Status(status)
	a.PaymentStatus = PaymentStatus(paymentStatus)
	return &a, nil
}
