package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
)

func (r *slotDayRepository) Get(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error) {
	query := `
		SELECT id, department, slot_date, closed, slots, total_slots, created_at, updated_at
		FROM slot_days
		WHERE department = $1 AND slot_date = $2
	`
	var day model.SlotDay
	err := r.db.GetContext(ctx, &day, query, dept, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot day: %w", err)
	}
	return &day, nil
}

func (r *slotDayRepository) ListRange(ctx context.Context, dept model.Department, from, to string) ([]*model.SlotDay, error) {
	query := `
		SELECT id, department, slot_date, closed, slots, total_slots, created_at, updated_at
		FROM slot_days
		WHERE department = $1 AND slot_date >= $2 AND slot_date <= $3
		ORDER BY slot_date ASC
	`
	var days []*model.SlotDay
	err := r.db.SelectContext(ctx, &days, query, dept, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list slot days: %w", err)
	}
	return days, nil
}
