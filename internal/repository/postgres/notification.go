package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, patient_id, appointment_id, title, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	n.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.PatientID, n.AppointmentID, n.Title, n.Body, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	query := `
		SELECT id, patient_id, appointment_id, title, body, read, created_at
		FROM notifications
		WHERE patient_id = $1
	`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	var out []*model.Notification
	if err := r.db.SelectContext(ctx, &out, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, patientID, id uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND patient_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
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

func (r *notificationRepository) MarkAllRead(ctx context.Context, patientID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE patient_id = $1 AND NOT read`
	if _, err := r.db.ExecContext(ctx, query, patientID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *adminNotificationRepository) Create(ctx context.Context, n *model.AdminNotification) error {
	query := `
		INSERT INTO admin_notifications (id, department, appointment_id, kind, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	n.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Department, n.AppointmentID, n.Kind, n.Body, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin notification: %w", err)
	}
	return nil
}

func (r *adminNotificationRepository) ListByDepartment(ctx context.Context, dept model.Department, unreadOnly bool) ([]*model.AdminNotification, error) {
	query := `
		SELECT id, department, appointment_id, kind, body, read, created_at
		FROM admin_notifications
		WHERE department = $1
	`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC`

	var out []*model.AdminNotification
	if err := r.db.SelectContext(ctx, &out, query, dept); err != nil {
		return nil, fmt.Errorf("failed to list admin notifications: %w", err)
	}
	return out, nil
}

func (r *adminNotificationRepository) MarkRead(ctx context.Context, dept model.Department, id uuid.UUID) error {
	query := `UPDATE admin_notifications SET read = TRUE WHERE id = $1 AND department = $2`
	result, err := r.db.ExecContext(ctx, query, id, dept)
	if err != nil {
		return fmt.Errorf("failed to mark admin notification read: %w", err)
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

func (r *adminNotificationRepository) MarkAllRead(ctx context.Context, dept model.Department) error {
	query := `UPDATE admin_notifications SET read = TRUE WHERE department = $1 AND NOT read`
	if _, err := r.db.ExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("failed to mark admin notifications read: %w", err)
	}
	return nil
}

func (r *adminNotificationRepository) Delete(ctx context.Context, dept model.Department, id uuid.UUID) error {
	query := `DELETE FROM admin_notifications WHERE id = $1 AND department = $2`
	result, err := r.db.ExecContext(ctx, query, id, dept)
	if err != nil {
		return fmt.Errorf("failed to delete admin notification: %w", err)
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
