package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

func (r *messageRepository) Create(ctx context.Context, m *model.Message) error {
	query := `
		INSERT INTO messages (id, name, email, subject, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	m.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Email, m.Subject, m.Body, m.Read, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*model.Message, error) {
	query := `
		SELECT id, name, email, subject, body, read, created_at
		FROM messages
	`
	if unreadOnly {
		query += ` WHERE NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var out []*model.Message
	if err := r.db.SelectContext(ctx, &out, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE messages SET read = TRUE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
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
