package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
)

var ErrNotFound = errors.New("record not found")

// Tx is the unit-of-work handed to service callbacks. Every slot-capacity
// mutation goes through it so booking, cancellation and admin edits all share
// the same row-lock discipline.
type Tx interface {
	// GetSlotDayForUpdate locks the (department, date) row. Returns
	// ErrNotFound when no day has been configured yet.
	GetSlotDayForUpdate(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error)
	SaveSlotDay(ctx context.Context, day *model.SlotDay) error

	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	InsertAppointment(ctx context.Context, apt *model.Appointment) error
	UpdateAppointment(ctx context.Context, apt *model.Appointment) error

	// NextAppointmentNumber increments and returns the per-department,
	// per-year sequence used for human-readable appointment numbers.
	NextAppointmentNumber(ctx context.Context, dept model.Department, year int) (int64, error)

	InsertOutboxEvent(ctx context.Context, event *model.OutboxEvent) error
}

// Store runs service callbacks inside a single database transaction.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type SlotDayRepository interface {
	Get(ctx context.Context, dept model.Department, date string) (*model.SlotDay, error)
	ListRange(ctx context.Context, dept model.Department, from, to string) ([]*model.SlotDay, error)
}

type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByEmail(ctx context.Context, email string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	List(ctx context.Context, search string, limit, offset int) ([]*model.Patient, error)
}

type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Admin, error)
	Update(ctx context.Context, admin *model.Admin) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]*model.Notification, error)
	MarkRead(ctx context.Context, patientID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, patientID uuid.UUID) error
}

type AdminNotificationRepository interface {
	Create(ctx context.Context, n *model.AdminNotification) error
	ListByDepartment(ctx context.Context, dept model.Department, unreadOnly bool) ([]*model.AdminNotification, error)
	MarkRead(ctx context.Context, dept model.Department, id uuid.UUID) error
	MarkAllRead(ctx context.Context, dept model.Department) error
	Delete(ctx context.Context, dept model.Department, id uuid.UUID) error
}

type OutboxRepository interface {
	GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
	MarkDeadLetter(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*model.Message, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}
