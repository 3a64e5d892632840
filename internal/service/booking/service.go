package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/internal/service/slot"
	"github.com/cityclinic/booking-api/pkg/logger"
	"github.com/cityclinic/booking-api/pkg/metrics"
)

var (
	ErrAlreadyCancelled = errors.New("appointment is already cancelled")
	ErrNotCancellable   = errors.New("completed appointments cannot be cancelled")
	ErrNotOwner         = errors.New("appointment belongs to another patient")
	ErrPastDate         = errors.New("cannot book a past date")
)

// Service owns the patient-facing booking and cancellation flows. Every
// capacity mutation runs inside one database transaction with the slot day
// row locked, so two patients racing for the last unit serialize and exactly
// one wins.
type Service struct {
	store   repository.Store
	repo    repository.AppointmentRepository
	slots   *slot.Service
	logger  *logger.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

func NewService(store repository.Store, repo repository.AppointmentRepository, slots *slot.Service, l *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		repo:    repo,
		slots:   slots,
		logger:  l,
		metrics: m,
		now:     time.Now,
	}
}

// Book reserves one unit of the requested slot and creates the pending
// appointment referencing it.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	dept, err := model.ParseDepartment(req.Department)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(model.DateFormat, req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}
	today := s.now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return nil, ErrPastDate
	}

	var slotID uuid.UUID
	if req.SlotID != "" {
		slotID, err = uuid.Parse(req.SlotID)
		if err != nil {
			return nil, fmt.Errorf("invalid slot ID: %w", err)
		}
	}
	if slotID == uuid.Nil && req.SlotTime == "" {
		return nil, fmt.Errorf("either slot_id or slot_time is required")
	}

	var apt *model.Appointment
	err = s.store.WithTx(ctx, func(tx repository.Tx) error {
		day, err := tx.GetSlotDayForUpdate(ctx, dept, req.Date)
		if err == repository.ErrNotFound {
			return model.ErrSlotUnavailable
		}
		if err != nil {
			return err
		}

		var entry *model.SlotEntry
		if slotID != uuid.Nil {
			entry, err = day.Book(slotID)
		} else {
			entry, err = day.BookByTime(req.SlotTime)
		}
		if err != nil {
			return err
		}

		number, err := s.nextNumber(ctx, tx, dept)
		if err != nil {
			return err
		}

		apt = &model.Appointment{
			ID:         uuid.New(),
			Number:     number,
			PatientID:  patientID,
			Department: dept,
			Date:       req.Date,
			SlotID:     entry.SlotID,
			SlotTime:   entry.Time,
			Services:   model.ServiceList(req.Services),
			Status:     model.AppointmentStatusPending,
		}
		if err := tx.InsertAppointment(ctx, apt); err != nil {
			return err
		}
		if err := tx.SaveSlotDay(ctx, day); err != nil {
			return err
		}

		evt, err := model.NewAppointmentOutboxEvent(model.EventAppointmentCreated, apt, "")
		if err != nil {
			return err
		}
		return tx.InsertOutboxEvent(ctx, evt)
	})
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues(string(dept), "rejected").Inc()
		return nil, err
	}

	s.slots.InvalidateDay(dept, req.Date)
	s.metrics.BookingAttempts.WithLabelValues(string(dept), "booked").Inc()
	return apt, nil
}

// Cancel marks the appointment cancelled and returns its unit to the slot
// day. Cancelling twice is rejected before any capacity change, so a
// duplicate request can never release the same unit twice. A missing or
// closed slot day is tolerated: the appointment still ends up cancelled.
func (s *Service) Cancel(ctx context.Context, patientID, appointmentID uuid.UUID) (*model.Appointment, error) {
	var apt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if patientID != uuid.Nil && current.PatientID != patientID {
			return ErrNotOwner
		}
		switch current.Status {
		case model.AppointmentStatusCancelled:
			return ErrAlreadyCancelled
		case model.AppointmentStatusCompleted:
			return ErrNotCancellable
		}

		s.releaseUnit(ctx, tx, current)

		current.Status = model.AppointmentStatusCancelled
		if err := tx.UpdateAppointment(ctx, current); err != nil {
			return err
		}

		evt, err := model.NewAppointmentOutboxEvent(model.EventAppointmentCancelled, current, "")
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

	s.slots.InvalidateDay(apt.Department, apt.EffectiveDate())
	return apt, nil
}

// releaseUnit gives the appointment's unit back to its slot day. Failures
// here are logged and swallowed: cancelling the appointment record takes
// priority over slot bookkeeping.
func (s *Service) releaseUnit(ctx context.Context, tx repository.Tx, apt *model.Appointment) {
	date := apt.EffectiveDate()
	slotID := apt.SlotID
	if apt.RescheduledSlot != nil {
		slotID = *apt.RescheduledSlot
	}

	day, err := tx.GetSlotDayForUpdate(ctx, apt.Department, date)
	if err != nil {
		s.logger.Warn("skipping slot release, day not loadable",
			"appointment_id", apt.ID.String(), "department", string(apt.Department), "date", date, "error", fmt.Sprint(err))
		return
	}
	if day.Closed {
		s.logger.Warn("skipping slot release, day is closed",
			"appointment_id", apt.ID.String(), "department", string(apt.Department), "date", date)
		return
	}
	if err := day.Release(slotID); err != nil {
		s.logger.Warn("skipping slot release, slot missing from day",
			"appointment_id", apt.ID.String(), "slot_id", slotID.String())
		return
	}
	if err := tx.SaveSlotDay(ctx, day); err != nil {
		s.logger.Error(err, "failed to save slot day during cancellation",
			"appointment_id", apt.ID.String())
	}
}

// Get returns one appointment, enforcing ownership for patients.
func (s *Service) Get(ctx context.Context, patientID, appointmentID uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if patientID != uuid.Nil && apt.PatientID != patientID {
		return nil, ErrNotOwner
	}
	return apt, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) nextNumber(ctx context.Context, tx repository.Tx, dept model.Department) (string, error) {
	year := s.now().Year()
	seq, err := tx.NextAppointmentNumber(ctx, dept, year)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", dept.NumberPrefix(), year, seq), nil
}
