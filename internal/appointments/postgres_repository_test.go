package appointments

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var appointmentRowColumns = []string{
	"id", "patient_id", "patient_email", "doctor_id", "slot_date", "slot_time", "status",
	"payment_status", "fee", "symptoms", "notes", "confirm_token", "created_at", "updated_at",
}

func TestPostgresRepository_InsertAndGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	ctx := context.Background()
	created := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

	appt := &Appointment{
		ID: "a1", PatientID: "p1", PatientEmail: "p1@example.com", DoctorID: "doc-1",
		Date: "2025-01-10", Time: "09:00", Status: StatusPending, PaymentStatus: PaymentPending,
		Fee: 200, Symptoms: "cough", ConfirmToken: "tok", CreatedAt: created, UpdatedAt: created,
	}
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("a1", "p1", "p1@example.com", "doc-1", "2025-01-10", "09:00", "pending", "pending",
			200.0, "cough", "", "tok", created, created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Insert(ctx, appt))

	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs("a1").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("a1", "p1", "p1@example.com", "doc-1", "2025-01-10", "09:00", "pending", "pending",
				200.0, "cough", "", "tok", created, created))
	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, appt, got)

	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns))
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	updated := time.Date(2025, 1, 9, 12, 1, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE appointments").
		WithArgs("a1", "cancelled", "pending", "", "", updated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.Update(context.Background(), &Appointment{
		ID: "a1", Status: StatusCancelled, PaymentStatus: PaymentPending, UpdatedAt: updated,
	}))

	mock.ExpectExec("UPDATE appointments").
		WithArgs("ghost", "cancelled", "pending", "", "", updated).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = repo.Update(context.Background(), &Appointment{
		ID: "ghost", Status: StatusCancelled, PaymentStatus: PaymentPending, UpdatedAt: updated,
	})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListAndCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := newPostgresRepositoryWithDB(mock)
	ctx := context.Background()
	t1 := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	mock.ExpectQuery("WHERE patient_id").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(appointmentRowColumns).
			AddRow("a2", "p1", "", "doc-1", "2025-01-11", "10:00", "confirmed", "pending", 150.0, "", "", "", t2, t2).
			AddRow("a1", "p1", "", "doc-1", "2025-01-10", "09:00", "cancelled", "pending", 150.0, "", "", "", t1, t1))
	items, err := repo.ListForPatient(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a2", items[0].ID)
	assert.Equal(t, StatusConfirmed, items[0].Status)
	assert.Equal(t, StatusCancelled, items[1].Status)

	mock.ExpectQuery("SELECT COUNT").WithArgs("p1").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	count, err := repo.CountForPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, mock.ExpectationsWereMet())
}
