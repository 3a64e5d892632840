package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

const adminColumns = `
		SELECT id, name, email, password_hash, role, department, active,
			   last_login_at, created_at, updated_at`

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	query := adminColumns + `
		FROM admins
		WHERE lower(email) = lower($1) AND active
	`
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) Get(ctx context.Context, id uuid.UUID) (*model.Admin, error) {
	query := adminColumns + `
		FROM admins
		WHERE id = $1
	`
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) Update(ctx context.Context, admin *model.Admin) error {
	query := `
		UPDATE admins
		SET name = $1, password_hash = $2, active = $3, last_login_at = $4, updated_at = $5
		WHERE id = $6
	`
	admin.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		admin.Name,
		admin.PasswordHash,
		admin.Active,
		admin.LastLoginAt,
		admin.UpdatedAt,
		admin.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin: %w", err)
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
