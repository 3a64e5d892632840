package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

type store struct {
	db *sqlx.DB
}

// NewStore builds the transactional unit-of-work used by the booking,
// cancellation, review and slot-editor services.
func NewStore(db *sqlx.DB) repository.Store {
	return &store{db: db}
}

func (s *store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	t := &tx{tx: sqlTx}
	if err := fn(t); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type tx struct {
	tx *sqlx.Tx
}

func (t *tx) GetSlotDayForUpdate(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	query := `
		SELECT id, department, slot_date, closed, slots, total_slots, created_at, updated_at
		FROM slot_days
		WHERE department = $1 AND slot_date = $2
		FOR UPDATE
	`
	var day model.SlotDay
	err := t.tx.GetContext(ctx, &day, query, dept, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock slot day: %w", err)
	}
	return &day, nil
}

func (t *tx) SaveSlotDay(ctx context.Context, day *model.SlotDay) error {
	query := `
		INSERT INTO slot_days (id, department, slot_date, closed, slots, total_slots, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (department, slot_date) DO UPDATE
		SET closed = EXCLUDED.closed,
			slots = EXCLUDED.slots,
			total_slots = EXCLUDED.total_slots,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	if day.CreatedAt.IsZero() {
		day.CreatedAt = now
	}
	day.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, query,
		day.ID,
		day.Department,
		day.Date,
		day.Closed,
		day.Slots,
		day.TotalSlots,
		day.CreatedAt,
		day.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save slot day: %w", err)
	}
	return nil
}

func (t *tx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := appointmentColumns + `
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`
	var apt model.Appointment
	err := t.tx.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock appointment: %w", err)
	}
	return &apt, nil
}

func (t *tx) InsertAppointment(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, number, patient_id, department, slot_date, slot_id, slot_time,
			services, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, query,
		apt.ID,
		apt.Number,
		apt.PatientID,
		apt.Department,
		apt.Date,
		apt.SlotID,
		apt.SlotTime,
		apt.Services,
		apt.Status,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (t *tx) UpdateAppointment(ctx context.Context, apt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1,
			reject_reason = $2,
			rescheduled_date = $3,
			rescheduled_slot = $4,
			rescheduled_time = $5,
			reviewed_by = $6,
			updated_at = $7
		WHERE id = $8
	`
	apt.UpdatedAt = time.Now()

	result, err := t.tx.ExecContext(ctx, query,
		apt.Status,
		apt.RejectReason,
		apt.RescheduledDate,
		apt.RescheduledSlot,
		apt.RescheduledTime,
		apt.ReviewedBy,
		apt.UpdatedAt,
		apt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *tx) NextAppointmentNumber(ctx context.Context, dept model.Department, year int) (int64, error) {
	query := `
		INSERT INTO counters (department, year, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (department, year) DO UPDATE
		SET value = counters.value + 1
		RETURNING value
	`
	var value int64
	if err := t.tx.GetContext(ctx, &value, query, dept, year); err != nil {
		return 0, fmt.Errorf("failed to advance appointment counter: %w", err)
	}
	return value, nil
}

func (t *tx) InsertOutboxEvent(ctx context.Context, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := t.tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
