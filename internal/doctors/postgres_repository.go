package doctors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores doctors in the doctors table and their calendars
// in doctor_slots, one row per (doctor_id, slot_date, slot_time).
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const doctorColumns = `id, name, email, phone, specialization, experience, education, about, fee,
		address_line1, address_line2, city, state, zip_code, is_available, image_key, created_at`

var slotColumns = []string{"doctor_id", "slot_date", "slot_time", "is_booked"}

// Create inserts the doctor and its calendar in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, doctor *Doctor) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("doctors: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	if _, err := tx.Exec(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Email,
		doctor.Phone,
		doctor.Specialization,
		doctor.Experience,
		doctor.Education,
		doctor.About,
		doctor.Fee,
		doctor.Address.Line1,
		doctor.Address.Line2,
		doctor.Address.City,
		doctor.Address.State,
		doctor.Address.ZipCode,
		doctor.IsAvailable,
		doctor.ImageKey,
		doctor.CreatedAt,
	); err != nil {
		return fmt.Errorf("doctors: insert doctor: %w", err)
	}

	if len(doctor.Slots) > 0 {
		rows := make([][]any, 0, len(doctor.Slots))
		for _, slot := range doctor.Slots {
			rows = append(rows, []any{doctor.ID, slot.Date, slot.Time, slot.IsBooked})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"doctor_slots"}, slotColumns, pgx.CopyFromRows(rows)); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrDuplicateSlot
			}
			return fmt.Errorf("doctors: insert slots: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("doctors: commit create: %w", err)
	}
	return nil
}

// Get loads a doctor with its full calendar in chronological order.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`
	doctor, err := scanDoctor(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: select doctor: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT slot_date, slot_time, is_booked
		FROM doctor_slots
		WHERE doctor_id = $1
		ORDER BY slot_date, slot_time
	`, id)
	if err != nil {
		return nil, fmt.Errorf("doctors: select slots: %w", err)
	}
	defer rows.Close()

	doctor.Slots = []Slot{}
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.Date, &slot.Time, &slot.IsBooked); err != nil {
			return nil, fmt.Errorf("doctors: scan slot: %w", err)
		}
		doctor.Slots = append(doctor.Slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate slots: %w", err)
	}
	return doctor, nil
}

// List returns available doctors matching filter, without slots.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Doctor, error) {
	conditions := []string{"is_available = true"}
	var args []any
	if terms := filter.SearchTerms(); len(terms) > 0 {
		for _, term := range terms {
			args = append(args, "%"+likeEscaper.Replace(term)+"%")
			conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
		}
	} else if spec := strings.TrimSpace(filter.Specialization); spec != "" {
		args = append(args, spec)
		conditions = append(conditions, fmt.Sprintf("specialization = $%d", len(args)))
	}

	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("doctors: list: %w", err)
	}
	defer rows.Close()

	out := []*Doctor{}
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("doctors: scan doctor: %w", err)
		}
		out = append(out, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate doctors: %w", err)
	}
	return out, nil
}

// Specializations returns the sorted distinct specializations of all doctors.
func (r *PostgresRepository) Specializations(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT specialization FROM doctors`)
	if err != nil {
		return nil, fmt.Errorf("doctors: specializations: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, fmt.Errorf("doctors: scan specialization: %w", err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("doctors: iterate specializations: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of stored doctors.
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("doctors: count: %w", err)
	}
	return n, nil
}

// ClaimSlot books the slot only while it is still unbooked.
func (r *PostgresRepository) ClaimSlot(ctx context.Context, doctorID, date, slotTime string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE doctor_slots SET is_booked = true
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND is_booked = false
	`, doctorID, date, slotTime)
	if err != nil {
		return fmt.Errorf("doctors: claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// ReleaseSlot unbooks every slot matching (date, time).
func (r *PostgresRepository) ReleaseSlot(ctx context.Context, doctorID, date, slotTime string) error {
	if _, err := r.db.Exec(ctx, `
		UPDATE doctor_slots SET is_booked = false
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
	`, doctorID, date, slotTime); err != nil {
		return fmt.Errorf("doctors: release slot: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoctor(row rowScanner) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Phone,
		&d.Specialization,
		&d.Experience,
		&d.Education,
		&d.About,
		&d.Fee,
		&d.Address.Line1,
		&d.Address.Line2,
		&d.Address.City,
		&d.Address.State,
		&d.Address.ZipCode,
		&d.IsAvailable,
		&d.ImageKey,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}
