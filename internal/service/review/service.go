package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/internal/service/slot"
	"github.com/cityclinic/booking-api/pkg/logger"
)

var (
	ErrNotPending     = errors.New("appointment is not pending review")
	ErrNotApproved    = errors.New("appointment is not approved")
	ErrWrongDept      = errors.New("appointment belongs to another department")
	ErrReasonRequired = errors.New("a rejection reason is required")
)

// Service owns the admin review flow: approving (optionally with a
// reschedule), rejecting and completing appointments. The status mutation and
// its outbox event always commit in the same transaction; email and in-app
// delivery are the dispatch worker's problem.
type Service struct {
	store  repository.Store
	repo   repository.AppointmentRepository
	slots  *slot.Service
	logger *logger.Logger
}

func NewService(store repository.Store, repo repository.AppointmentRepository, slots *slot.Service, l *logger.Logger) *Service {
	return &Service{store: store, repo: repo, slots: slots, logger: l}
}

// ListPending returns the admin's actionable queue.
func (s *Service) ListPending(ctx context.Context, admin *model.Admin) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{Status: model.AppointmentStatusPending}
	if admin.Role != model.AdminRoleSuper {
		filters.Department = admin.Department
	}
	return s.repo.List(ctx, filters)
}

// Approve transitions a pending appointment to approved. When the request
// carries a reschedule, the original unit is released and a fresh unit with a
// new slot identifier is booked on the target day, all in one transaction.
func (s *Service) Approve(ctx context.Context, admin *model.Admin, appointmentID uuid.UUID, req *model.ApproveAppointmentRequest) (*model.Appointment, error) {
	if req.Date != "" && req.SlotTime == "" {
		return nil, fmt.Errorf("slot_time is required when rescheduling")
	}

	var apt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !admin.CanManage(current.Department) {
			return ErrWrongDept
		}
		if current.Status != model.AppointmentStatusPending {
			return ErrNotPending
		}

		if req.Date != "" {
			if err := s.reschedule(ctx, tx, current, req.Date, req.SlotTime); err != nil {
				return err
			}
		}

		current.Status = model.AppointmentStatusApproved
		current.ReviewedBy = &admin.ID
		if err := tx.UpdateAppointment(ctx, current); err != nil {
			return err
		}

		evt, err := model.NewAppointmentOutboxEvent(model.EventAppointmentApproved, current, "")
		if err != nil {
			return err
		}
		if err := tx.InsertOutboxEvent(ctx, evt); err != nil {
			return err
		}

		apt = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.slots.InvalidateDay(apt.Department, apt.Date)
	if apt.RescheduledDate != nil {
		s.slots.InvalidateDay(apt.Department, *apt.RescheduledDate)
	}
	return apt, nil
}

// reschedule releases the originally booked unit and books a dedicated unit
// on the target day. The new unit always carries a freshly generated slot
// identifier so it can never collide with the original booking.
func (s *Service) reschedule(ctx context.Context, tx repository.Tx, apt *model.Appointment, date, slotTime string) error {
	oldDay, err := tx.GetSlotDayForUpdate(ctx, apt.Department, apt.Date)
	if err == nil && !oldDay.Closed {
		if relErr := oldDay.Release(apt.SlotID); relErr != nil {
			s.logger.Warn("reschedule: original slot missing from day",
				"appointment_id", apt.ID.String(), "slot_id", apt.SlotID.String())
		} else if saveErr := tx.SaveSlotDay(ctx, oldDay); saveErr != nil {
			return saveErr
		}
	} else if err != nil && err != repository.ErrNotFound {
		return err
	}

	newDay, err := tx.GetSlotDayForUpdate(ctx, apt.Department, date)
	if err == repository.ErrNotFound {
		newDay = model.NewSlotDay(apt.Department, date)
	} else if err != nil {
		return err
	}

	newSlot := model.SlotEntry{
		SlotID:    uuid.New(),
		Time:      slotTime,
		Remaining: 0,
		Capacity:  1,
	}
	newDay.Closed = false
	newDay.Slots = append(newDay.Slots, newSlot)
	if err := tx.SaveSlotDay(ctx, newDay); err != nil {
		return err
	}

	apt.RescheduledDate = &date
	apt.RescheduledSlot = &newSlot.SlotID
	apt.RescheduledTime = &slotTime
	return nil
}

// Reject transitions a pending appointment to rejected with a mandatory
// reason. The booked unit stays consumed: rejection is a triage outcome, not
// a cancellation, and the original system never restored capacity here.
func (s *Service) Reject(ctx context.Context, admin *model.Admin, appointmentID uuid.UUID, reason string) (*model.Appointment, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var apt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !admin.CanManage(current.Department) {
			return ErrWrongDept
		}
		if current.Status != model.AppointmentStatusPending {
			return ErrNotPending
		}

		current.Status = model.AppointmentStatusRejected
		current.RejectReason = &reason
		current.ReviewedBy = &admin.ID
		if err := tx.UpdateAppointment(ctx, current); err != nil {
			return err
		}

		evt, err := model.NewAppointmentOutboxEvent(model.EventAppointmentRejected, current, reason)
		if err != nil {
			return err
		}
		if err := tx.InsertOutboxEvent(ctx, evt); err != nil {
			return err
		}

		apt = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}

// Complete marks an approved appointment as completed after the visit.
func (s *Service) Complete(ctx context.Context, admin *model.Admin, appointmentID uuid.UUID) (*model.Appointment, error) {
	var apt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if !admin.CanManage(current.Department) {
			return ErrWrongDept
		}
		if current.Status != model.AppointmentStatusApproved {
			return ErrNotApproved
		}

		current.Status = model.AppointmentStatusCompleted
		current.ReviewedBy = &admin.ID
		if err := tx.UpdateAppointment(ctx, current); err != nil {
			return err
		}
		apt = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}
